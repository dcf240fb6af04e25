// Package confirm provides the receiver-side accept/refuse prompt the
// client session consumes before entering the file transfer state. It is an
// external collaborator the core session state machine calls through an
// interface, kept out of the protocol core itself.
package confirm

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
)

// Confirmer decides whether an incoming manifest should be accepted. It is
// called once per transfer with the manifest's total item count and total
// byte size.
type Confirmer interface {
	Confirm(totalItems int, totalSize int64) bool
}

// AutoConfirmer always returns a fixed answer. It backs the `--yes` CLI
// flag and every test in this module that drives a full transfer.
type AutoConfirmer bool

// Confirm implements Confirmer.
func (a AutoConfirmer) Confirm(int, int64) bool { return bool(a) }

// Huh prompts interactively on the terminal using charmbracelet/huh.
type Huh struct{}

// Confirm implements Confirmer by rendering an interactive yes/no form.
func (Huh) Confirm(totalItems int, totalSize int64) bool {
	title := fmt.Sprintf("Accept %d item(s), %s?", totalItems, humanize.Bytes(uint64(totalSize)))

	accept := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Accept").
				Negative("Refuse").
				Value(&accept),
		),
	)
	if err := form.Run(); err != nil {
		// A non-interactive terminal or an aborted prompt refuses the
		// transfer rather than silently accepting it.
		return false
	}
	return accept
}

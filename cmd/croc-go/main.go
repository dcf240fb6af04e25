// Package main provides the croc-go CLI: send, receive, and relay
// subcommands over the package's PAKE-authenticated, relay-brokered file
// transfer protocol.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "croc-go",
		Short:   "croc-go - relay-brokered, PAKE-authenticated file transfer",
		Long:    `croc-go sends and receives files between two machines through a rendezvous relay, authenticating a shared secret with a SPAKE2-style key exchange so the relay never sees plaintext.`,
		Version: Version,
	}

	rootCmd.AddGroup(&cobra.Group{ID: "transfer", Title: "Transfer:"})
	rootCmd.AddGroup(&cobra.Group{ID: "admin", Title: "Administration:"})

	send := sendCmd()
	send.GroupID = "transfer"
	rootCmd.AddCommand(send)

	receive := receiveCmd()
	receive.GroupID = "transfer"
	rootCmd.AddCommand(receive)

	relay := relayCmd()
	relay.GroupID = "admin"
	rootCmd.AddCommand(relay)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

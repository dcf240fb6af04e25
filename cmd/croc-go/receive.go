package main

import (
	"fmt"
	"os"

	"github.com/postalsys/croc-go/internal/confirm"
	"github.com/postalsys/croc-go/internal/logging"
	"github.com/postalsys/croc-go/internal/transfer"
	"github.com/spf13/cobra"
)

func receiveCmd() *cobra.Command {
	var (
		relayAddress     string
		relayPassword    string
		askRelayPassword bool
		outDir           string
		noLocal          bool
		yes              bool
		logLevel         string
		quiet            bool
	)

	cmd := &cobra.Command{
		Use:   "receive [flags] <code>",
		Short: "Receive files using a code shared by the sender",
		Long: `Receive pairs with a sender through the relay using the code the sender
gave you out-of-band, then prompts you to accept the incoming manifest
before writing any files under --out.

Example:
  croc-go receive 4821-amber-raven`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]

			if askRelayPassword {
				pw, err := promptRelayPassword()
				if err != nil {
					return err
				}
				relayPassword = pw
			}

			logger := logging.NewLogger(logLevel, "text")

			var confirmer confirm.Confirmer = confirm.Huh{}
			if yes {
				confirmer = confirm.AutoConfirmer(true)
			}

			cfg := transfer.Config{
				SharedSecret:  code,
				RelayAddress:  relayAddress,
				RelayPassword: relayPassword,
				DisableLocal:  noLocal,
				Confirmer:     confirmer,
				Logger:        logger,
			}

			var onProgress func(done, total int64)
			if !quiet {
				onProgress = func(done, total int64) {
					fmt.Fprint(os.Stdout, progressLine(done, total))
				}
			}

			if outDir == "" {
				outDir = "."
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("receive: create output directory: %w", err)
			}

			result, err := transfer.Receive(cmd.Context(), cfg, outDir, onProgress)
			if !quiet {
				fmt.Println()
			}
			if err != nil {
				return fmt.Errorf("receive: %w", err)
			}

			fmt.Printf("Received %d file(s), %d bytes, from %s in %s\n",
				result.Files, result.TotalSize, result.PeerIP, result.Elapsed)
			return nil
		},
	}

	cmd.Flags().StringVar(&relayAddress, "relay", "localhost:9009", "relay control-channel address")
	cmd.Flags().StringVar(&relayPassword, "relay-password", "", "relay password (defaults to the relay's own default)")
	cmd.Flags().BoolVar(&askRelayPassword, "ask-relay-password", false, "prompt for the relay password instead of passing it on the command line")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to write received files into")
	cmd.Flags().BoolVar(&noLocal, "no-local", false, "don't advertise local network addresses to the sender")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "accept the incoming transfer without prompting")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "debug, info, warn, or error")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress the progress bar")

	return cmd
}

package main

import (
	"fmt"
	"os"

	"github.com/postalsys/croc-go/internal/logging"
	"github.com/postalsys/croc-go/internal/transfer"
	"github.com/spf13/cobra"
)

func sendCmd() *cobra.Command {
	var (
		code             string
		relayAddress     string
		relayPassword    string
		askRelayPassword bool
		noLocal          bool
		logLevel         string
		quiet            bool
	)

	cmd := &cobra.Command{
		Use:   "send [flags] <path>...",
		Short: "Send one or more files or directories",
		Long: `Send pairs with a receiver through the relay and streams every file or
directory given on the command line. If --code is not given, a random code
is generated and printed for you to share with the receiving side.

Examples:
  # Send a single file, letting croc-go generate the code
  croc-go send ./report.pdf

  # Send a directory with a code you chose yourself
  croc-go send --code 4821-amber-raven ./build-output`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if code == "" {
				generated, err := generateCode()
				if err != nil {
					return err
				}
				code = generated
			}
			printCodeBanner(code)

			if askRelayPassword {
				pw, err := promptRelayPassword()
				if err != nil {
					return err
				}
				relayPassword = pw
			}

			logger := logging.NewLogger(logLevel, "text")

			cfg := transfer.Config{
				SharedSecret:  code,
				RelayAddress:  relayAddress,
				RelayPassword: relayPassword,
				DisableLocal:  noLocal,
				Logger:        logger,
			}

			var onProgress func(done, total int64)
			if !quiet {
				onProgress = func(done, total int64) {
					fmt.Fprint(os.Stdout, progressLine(done, total))
				}
			}

			result, err := transfer.Send(cmd.Context(), cfg, args, onProgress)
			if !quiet {
				fmt.Println()
			}
			if err != nil {
				return fmt.Errorf("send: %w", err)
			}

			fmt.Printf("Sent %d file(s), %d bytes, to %s in %s\n",
				result.Files, result.TotalSize, result.PeerIP, result.Elapsed)
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "shared secret to use instead of generating one")
	cmd.Flags().StringVar(&relayAddress, "relay", "localhost:9009", "relay control-channel address")
	cmd.Flags().StringVar(&relayPassword, "relay-password", "", "relay password (defaults to the relay's own default)")
	cmd.Flags().BoolVar(&askRelayPassword, "ask-relay-password", false, "prompt for the relay password instead of passing it on the command line")
	cmd.Flags().BoolVar(&noLocal, "no-local", false, "don't advertise local network addresses to the receiver")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "debug, info, warn, or error")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress the progress bar")

	return cmd
}

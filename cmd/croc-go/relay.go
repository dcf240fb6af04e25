package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/postalsys/croc-go/internal/config"
	"github.com/postalsys/croc-go/internal/logging"
	"github.com/postalsys/croc-go/internal/relay"
	"github.com/spf13/cobra"
)

func relayCmd() *cobra.Command {
	var (
		configPath     string
		address        string
		multiplexCSV   string
		password       string
		metricsAddress string
		logLevel       string
		logFormat      string
	)

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run the rendezvous relay",
		Long: `Run the relay that pairs a sender and a receiver under a shared room
name and bridges their connection once both have joined. The relay never
sees plaintext: it only brokers PAKE-authenticated rooms and copies bytes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadRelayConfig(configPath)
			if err != nil {
				return err
			}
			if address != "" {
				cfg.Address = address
			}
			if multiplexCSV != "" {
				cfg.MultiplexPorts = strings.Split(multiplexCSV, ",")
			}
			if password != "" {
				cfg.Password = password
			}
			if metricsAddress != "" {
				cfg.MetricsAddress = metricsAddress
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if logFormat != "" {
				cfg.LogFormat = logFormat
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)

			srv := relay.NewServer(relay.ServerConfig{
				Address:            cfg.Address,
				MultiplexAddresses: cfg.MultiplexPorts,
				Password:           cfg.Password,
				MultiplexPassword:  cfg.MultiplexPassword,
				RoomTTL:            cfg.RoomTTL,
				BandwidthLimit:     cfg.BandwidthLimit,
				MetricsAddress:     cfg.MetricsAddress,
				Logger:             logger,
			})
			if err := srv.Start(); err != nil {
				return fmt.Errorf("start relay: %w", err)
			}

			fmt.Printf("Relay listening on %s (multiplex: %s)\n", cfg.Address, strings.Join(cfg.MultiplexPorts, ", "))

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			fmt.Printf("\nReceived signal %v, shutting down...\n", sig)

			return srv.Stop()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a relay config file (YAML)")
	cmd.Flags().StringVar(&address, "address", "", "control-channel listen address (overrides config)")
	cmd.Flags().StringVar(&multiplexCSV, "multiplex", "", "comma-separated bulk-channel listen addresses (overrides config)")
	cmd.Flags().StringVar(&password, "password", "", "control-channel password (overrides config)")
	cmd.Flags().StringVar(&metricsAddress, "metrics-address", "", "address to serve Prometheus metrics on (overrides config)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "debug, info, warn, or error (overrides config)")
	cmd.Flags().StringVar(&logFormat, "log-format", "", "text or json (overrides config)")

	return cmd
}

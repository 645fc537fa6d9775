package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	relayimpl "github.com/foxseedlab/shadowinterview/external/relay"
	transcriberimpl "github.com/foxseedlab/shadowinterview/external/transcriber"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

func newRelayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Serve the realtime transcription socket backed by Google Cloud Speech",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := cfg.ValidateRelay(); err != nil {
				return fmt.Errorf("config validation failed: %w", err)
			}

			injector := do.New()
			do.ProvideValue(injector, cfg)
			transcriberimpl.RegisterDI(injector)
			relayimpl.RegisterDI(injector)
			server, err := do.Invoke[*relayimpl.Server](injector)
			if err != nil {
				return fmt.Errorf("failed to resolve relay server: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.ListenAndServe(ctx)
		},
	}
}

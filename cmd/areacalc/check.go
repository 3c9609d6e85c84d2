package main

import (
	"context"
	"fmt"

	"github.com/fpang/area-calc/internal/connectivity"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the measurement server is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logStartup("areacalc check", false)

		prober := connectivity.NewProber(connectivity.ProberOpts{URL: cfg.ProbeURL})
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ProbeInterval)
		defer cancel()

		ok, err := prober.Probe(ctx)
		if !ok {
			log.Error().Err(err).Str("url", cfg.ProbeURL).Msg("Server unreachable")
			return fmt.Errorf("server unreachable: %s", cfg.ProbeURL)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Server reachable: %s\n", cfg.ProbeURL)
		return nil
	},
}

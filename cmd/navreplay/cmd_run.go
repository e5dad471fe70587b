package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/framenav/internal/infrastructure/config"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/logging"
)

func newRunCmd() *cobra.Command {
	var (
		configPath      string
		subframeHistory bool
		verbose         bool
		quiet           bool
	)

	cmd := &cobra.Command{
		Use:   "run <script.yaml>",
		Short: "Replay a script and print the history after each step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := LoadScript(args[0])
			if err != nil {
				return err
			}

			cfg := config.Default()
			if configPath != "" {
				if err := config.LoadFile(configPath, cfg); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("subframe-history") {
				cfg.Navigation.SubframeHistoryNavigation = subframeHistory
			}

			log := logging.NewNop()
			if verbose {
				log = logging.NewDevelopment()
			}
			defer log.Sync()

			runner, err := NewRunner(cfg, script, cmd.OutOrStdout(), log.Logger)
			if err != nil {
				return err
			}
			defer runner.Close()
			runner.quiet = quiet

			if err := runner.Run(cmd.Context()); err != nil {
				return err
			}
			if quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "ok %d steps\n", len(script.Steps))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "TOML config file")
	cmd.Flags().BoolVar(&subframeHistory, "subframe-history", false, "Target history navigations at subframes")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log controller activity")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print only the result")
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <script.yaml>...",
		Short: "Validate scripts without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				s, err := LoadScript(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d steps\n", path, len(s.Steps))
			}
			return nil
		},
	}
}

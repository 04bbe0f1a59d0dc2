package main

import (
	"context"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/okian/pulse/internal/config"
	"github.com/okian/pulse/pkg/logger"
)

// commandContext loads configuration and logging once per invocation.
type commandContext struct {
	configFlag string

	once sync.Once
	cfg  *config.Config
	err  error
}

func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	c.once.Do(func() {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		var cfg *config.Config
		if path := strings.TrimSpace(c.configFlag); path != "" {
			cfg, c.err = config.LoadFile(ctx, path)
		} else {
			cfg, c.err = config.Load(ctx)
		}
		if c.err != nil {
			return
		}

		// Logs go to stderr so command output stays clean on stdout.
		if c.err = logger.Init(logger.WithWriter(cmd.ErrOrStderr()), logger.WithFormat(cfg.LogFormat)); c.err != nil {
			return
		}
		if err := logger.SetLevelString(cfg.LogLevel); err != nil {
			logger.Get().Warn(ctx, "invalid log_level; falling back to info",
				logger.String("log_level", cfg.LogLevel),
				logger.Error(err),
			)
			_ = logger.SetLevelString("info")
		}
		c.cfg = cfg
	})
	return c.cfg, c.err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func newRootCommand() *cobra.Command {
	cctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "pulse",
		Short:         "Guess the live game a viewer is watching",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := cctx.ensureConfig(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cctx.configFlag, "config", "c", "", "Configuration file path (overrides PULSE_CONFIG)")

	rootCmd.AddCommand(newServeCommand(cctx))
	rootCmd.AddCommand(newResolveCommand(cctx))
	rootCmd.AddCommand(newLoadTestCommand())

	return rootCmd
}

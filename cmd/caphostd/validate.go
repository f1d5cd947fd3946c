package main

import (
	"fmt"

	"github.com/spf13/cobra"

	caphost "github.com/ferro-labs/caphost"
)

func validateConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate-config [path]",
		Short: "Parse and validate a config file without starting a host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := caphost.LoadConfig(args[0])
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := caphost.ValidateConfig(*cfg); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			fmt.Printf("OK: %d binding(s), %d middleware\n", len(cfg.Bindings), len(cfg.Middleware))
			return nil
		},
	}
	return cmd
}

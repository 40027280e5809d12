package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/config"
)

func newConfigCommand(configFlag *string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *configFlag
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			} else {
				expanded, err := config.ExpandPath(path)
				if err != nil {
					return err
				}
				path = expanded
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sample configuration written to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and report the resolved file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(*configFlag)
			if err != nil {
				return err
			}
			if exists {
				fmt.Fprintf(cmd.OutOrStdout(), "Configuration valid: %s\n", path)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "No config file found, defaults and environment are valid")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Data directory: %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(cmd.OutOrStdout(), "API bind: %s\n", cfg.Paths.APIBind)
			fmt.Fprintf(cmd.OutOrStdout(), "Webhook mode: %s\n", cfg.Webhooks.Mode)
			return nil
		},
	}

	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(validateCmd)
	return configCmd
}

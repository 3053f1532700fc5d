package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"storycatcher/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage storycatcher configuration",
	Long:  `Get and set configuration values for storycatcher`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}

		value, err := cfg.Get(key)
		if err != nil {
			fmt.Printf("Error getting config value: %v\n", err)
			return
		}

		fmt.Printf("%s = %v\n", key, value)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]
		value := args[1]

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}

		if err := cfg.Set(key, value); err != nil {
			fmt.Printf("Error setting config value: %v\n", err)
			return
		}

		if err := config.Save(cfg); err != nil {
			fmt.Printf("Error saving config: %v\n", err)
			return
		}

		fmt.Printf("%s = %s\n", key, value)
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration values",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}

		fmt.Printf("api_base_url = %s\n", cfg.APIBaseURL)
		fmt.Printf("request_timeout_seconds = %d\n", cfg.RequestTimeoutSec)
		fmt.Printf("log_file = %s\n", cfg.LogFile)
		fmt.Printf("debug = %t\n", cfg.Debug)
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
}

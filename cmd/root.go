package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storycatcher/api"
	"storycatcher/chat"
	"storycatcher/config"
	"storycatcher/logging"
	"storycatcher/session"
	"storycatcher/tui"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:   "storycatcher",
	Short: "Storycatcher is a terminal client for guided story interviews",
	Long: `Storycatcher is a terminal client for guided story interviews.
It walks you through a short series of questions, turns your answers
into an editable storyboard, and generates a video from the result.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		if debug {
			cfg.Debug = true
		}

		appDir, err := config.EnsureAppDir()
		if err != nil {
			fmt.Printf("Error creating app directory: %v\n", err)
			os.Exit(1)
		}

		log, closeLog, err := logging.New(cfg.LogFile, cfg.Debug)
		if err != nil {
			fmt.Printf("Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer closeLog()

		store, err := session.NewFileStore(appDir)
		if err != nil {
			fmt.Printf("Error opening session store: %v\n", err)
			os.Exit(1)
		}

		client := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout())
		machine := chat.NewMachine(client, store, chat.DefaultIntervals(), log)
		defer machine.Close()

		if err := tui.Run(machine); err != nil {
			fmt.Printf("Error starting TUI: %v\n", err)
			os.Exit(1)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
}

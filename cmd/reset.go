package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"storycatcher/config"
	"storycatcher/session"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the saved session",
	Long:  `Discard the saved session so the next run starts a fresh story interview.`,
	Run: func(cmd *cobra.Command, args []string) {
		appDir, err := config.AppDir()
		if err != nil {
			fmt.Printf("Error locating app directory: %v\n", err)
			return
		}

		store, err := session.NewFileStore(appDir)
		if err != nil {
			fmt.Printf("Error opening session store: %v\n", err)
			return
		}

		if err := store.Clear(); err != nil {
			fmt.Printf("Error clearing session: %v\n", err)
			return
		}

		fmt.Println("Saved session cleared.")
	},
}

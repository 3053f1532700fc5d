package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"storycatcher/api"
	"storycatcher/config"
	"storycatcher/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend health and the saved session",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}

		client := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout())
		if err := client.Health(context.Background()); err != nil {
			fmt.Printf("Backend:  unreachable (%v)\n", err)
		} else {
			fmt.Printf("Backend:  ok (%s)\n", cfg.APIBaseURL)
		}

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

		snap, ok := store.Load()
		if !ok {
			fmt.Println("Session:  none saved")
			return
		}
		fmt.Printf("Session:  %s (question %d)\n", snap.SessionID, snap.CurrentQuestion)

		sess, err := client.SessionStatus(context.Background(), snap.SessionID)
		if err != nil {
			fmt.Printf("Progress: unavailable (%v)\n", err)
			return
		}
		switch {
		case sess.SessionComplete && sess.Storyboard != "":
			fmt.Println("Progress: interview complete, storyboard ready")
		case sess.SessionComplete:
			fmt.Println("Progress: interview complete, storyboard generating")
		default:
			fmt.Printf("Progress: on question %d of %d\n", sess.QuestionNumber, sess.TotalQuestions)
		}
	},
}

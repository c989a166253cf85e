package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "bookworm",
		Short:         "Client for the BookWorm book-recommendation feed",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")

	cmd.AddCommand(newSignupCmd(&configPath))
	cmd.AddCommand(newLoginCmd(&configPath))
	cmd.AddCommand(newLogoutCmd(&configPath))
	cmd.AddCommand(newWhoamiCmd(&configPath))
	cmd.AddCommand(newFeedCmd(&configPath))
	cmd.AddCommand(newMineCmd(&configPath))
	cmd.AddCommand(newPostCmd(&configPath))
	cmd.AddCommand(newRmCmd(&configPath))

	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sitebox/sitebox/internal/client/config"
	"github.com/sitebox/sitebox/internal/client/workspace"
)

func init() {
	rootCmd.AddCommand(newInitCmd())
}

func newInitCmd() *cobra.Command {
	var cfg config.Config

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file and create the sync folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}

			ws, err := workspace.New(cfg.SyncFolder)
			if err != nil {
				return err
			}
			if err := ws.Bootstrap(); err != nil {
				return err
			}

			path, _ := cmd.Flags().GetString("config")
			if err := cfg.Save(path); err != nil {
				return err
			}

			cmd.SilenceUsage = true
			fmt.Printf("config written to %s\nsync folder %s\n", path, cfg.SyncFolder)
			return nil
		},
	}

	initCmd.Flags().SortFlags = false
	initCmd.Flags().StringVarP(&cfg.APIKey, "api-key", "k", "", "API key for the SiteBox server")
	initCmd.Flags().StringVarP(&cfg.Username, "username", "u", "", "SiteBox username")
	initCmd.Flags().StringVarP(&cfg.SyncFolder, "folder", "f", config.DefaultSyncFolder, "Folder to keep in sync")
	initCmd.Flags().StringVarP(&cfg.ServerURL, "server", "s", config.DefaultServerURL, "SiteBox server URL")
	initCmd.MarkFlagRequired("api-key")
	initCmd.MarkFlagRequired("username")

	return initCmd
}

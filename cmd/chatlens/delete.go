package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/minqua/chatlens/internal/config"
	"github.com/minqua/chatlens/internal/store"
)

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete an imported session and its storage artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			catalog := store.NewCatalog(cfg.DataDir)
			if _, err := catalog.Get(args[0]); errors.Is(err, store.ErrSessionNotFound) {
				return fmt.Errorf("session %s not found", args[0])
			}

			if !catalog.Delete(args[0]) {
				return fmt.Errorf("could not delete session %s", args[0])
			}
			fmt.Printf("Deleted session %s\n", args[0])
			return nil
		},
	}
}

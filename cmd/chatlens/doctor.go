package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/minqua/chatlens/internal/config"
	"github.com/minqua/chatlens/internal/store"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify the data directory and session files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			fmt.Println("=== Data Directory ===")
			if info, err := os.Stat(cfg.DataDir); err != nil {
				fmt.Printf("  %s (NOT FOUND - created on first import)\n", cfg.DataDir)
				return nil
			} else if !info.IsDir() {
				fmt.Printf("  %s (NOT A DIRECTORY)\n", cfg.DataDir)
				return nil
			}
			fmt.Printf("  %s (OK)\n", cfg.DataDir)

			catalog := store.NewCatalog(cfg.DataDir)
			sessions, err := catalog.List()
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			fmt.Println("\n=== Sessions ===")
			fmt.Printf("  Readable: %d\n", len(sessions))

			totalMsgs := 0
			var totalSize int64
			for _, s := range sessions {
				totalMsgs += s.MessageCount
				if info, err := os.Stat(s.Path); err == nil {
					totalSize += info.Size()
				}
			}
			fmt.Printf("  Messages: %d\n", totalMsgs)
			fmt.Printf("  Disk:     %.1f MB\n", float64(totalSize)/1024/1024)

			return nil
		},
	}
}

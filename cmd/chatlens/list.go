package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/minqua/chatlens/internal/config"
	"github.com/minqua/chatlens/internal/store"
)

var (
	styleHeader   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	stylePlatform = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleDim      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List imported sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			catalog := store.NewCatalog(cfg.DataDir)
			sessions, err := catalog.List()
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}
			if len(sessions) == 0 {
				fmt.Println("No sessions imported yet. Run 'chatlens import <file>' first.")
				return nil
			}

			fmt.Println(styleHeader.Render(fmt.Sprintf(
				"%-24s %-10s %-8s %8s %8s  %-19s %s",
				"ID", "PLATFORM", "TYPE", "MSGS", "MEMBERS", "IMPORTED", "NAME")))
			for _, s := range sessions {
				imported := time.Unix(s.ImportedAt, 0).Format("2006-01-02 15:04:05")
				fmt.Printf("%-24s %-10s %-8s %8d %8d  %s %s\n",
					s.ID,
					stylePlatform.Render(fmt.Sprintf("%-10s", s.Platform)),
					s.ChatType,
					s.MessageCount,
					s.MemberCount,
					styleDim.Render(imported),
					s.Name)
			}
			return nil
		},
	}
}

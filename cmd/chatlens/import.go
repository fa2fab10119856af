package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/minqua/chatlens/internal/config"
	"github.com/minqua/chatlens/internal/parser"
	"github.com/minqua/chatlens/internal/store"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a chat export archive (Telegram JSON, WhatsApp/QQ text)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}

			registry := parser.NewRegistry()
			result, err := registry.Parse(content, args[0])
			if errors.Is(err, parser.ErrNoMatchingFormat) {
				return fmt.Errorf("unsupported format: %s does not match any known chat export", args[0])
			}
			if err != nil {
				return err
			}

			imp := store.NewImporter(cfg.DataDir)
			res, err := imp.Import(result)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}

			fmt.Printf("Imported %q (%s, %s): session %s\n",
				result.Name, result.Platform, result.ChatType, res.SessionID)
			if res.Dropped > 0 {
				fmt.Fprintf(os.Stderr, "Warning: %d messages dropped (unresolved sender)\n", res.Dropped)
			}
			return nil
		},
	}
}

package cmd

import (
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/topi314/tint"

	"github.com/notifier-app/notifier/tui"
)

func NewTUICmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "tui",
		GroupID: "actions",
		Short:   "Opens the interactive terminal ui",
		Long: `Opens the interactive terminal ui to manage templates, destinations and integrations.

Set DEBUG=1 to write the ui log to debug.log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(os.Getenv("DEBUG")) > 0 {
				f, err := tea.LogToFile("debug.log", "debug")
				if err != nil {
					return fmt.Errorf("failed to open debug log: %w", err)
				}
				defer f.Close()
			}

			c, err := newClients()
			if err != nil {
				return err
			}

			deps := tui.Deps{
				Ctx:      cmd.Context(),
				API:      c.api,
				Queries:  c.queries,
				Identity: c.identity,
			}
			db, err := c.openDB(cmd.Context())
			if err != nil {
				slog.Warn("Drafts are disabled", tint.Err(err))
			} else {
				defer db.Close()
				deps.Drafts = db
			}

			p := tea.NewProgram(tui.NewMain(deps), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err = p.Run(); err != nil {
				return fmt.Errorf("failed to run tui: %w", err)
			}
			return nil
		},
	}

	parent.AddCommand(cmd)
}

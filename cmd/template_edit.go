package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/topi314/tint"

	"github.com/notifier-app/notifier/internal/editor"
	"github.com/notifier-app/notifier/notifier"
	"github.com/notifier-app/notifier/tui"
)

func addTemplateFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("name", "n", "", "The template name")
	cmd.Flags().String("integration", "", "The notion integration id or name")
	cmd.Flags().String("database", "", "The notion database id or name")
	cmd.Flags().StringArrayP("condition", "c", nil, "A condition as property:operator:value, can be repeated (replaces existing conditions)")
	cmd.Flags().StringP("body", "b", "", "The message body, use {Property} and {_pageUrl} placeholders")
	cmd.Flags().StringP("destination", "d", "", "The destination id or name")
	cmd.Flags().BoolP("interactive", "i", false, "Edit the template in the terminal ui")
}

func bindTemplateFlags(cmd *cobra.Command) error {
	for _, name := range []string{"name", "integration", "database", "body", "destination", "interactive"} {
		if err := viper.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

func newTemplateNewCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Creates a notification template",
		Example: `notifier template new -i

Will open the template editor.

notifier template new --name "Done tasks" --integration Work --database Tasks \
	--condition Status:equals:Done --body "{Name} is done: {_pageUrl}" --destination Ops

Will create the template without asking.

notifier template new --draft 1b4e28ba-2fa1-11d2-883f-0016d3cca427

Will resume a draft saved after a failed submission.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := bindTemplateFlags(cmd); err != nil {
				return err
			}
			return viper.BindPFlag("draft", cmd.Flags().Lookup("draft"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClients()
			if err != nil {
				return err
			}
			if err = c.requireAuth(); err != nil {
				return err
			}

			var opts []editor.Option
			if draftID := viper.GetString("draft"); draftID != "" {
				draft, err := getDraft(cmd.Context(), c, draftID)
				if err != nil {
					return err
				}
				opts = append(opts, editor.WithDraft(*draft))
			}
			return runTemplateEditor(cmd, c, opts...)
		},
	}

	parent.AddCommand(cmd)
	addTemplateFlags(cmd)
	cmd.Flags().String("draft", "", "Resume a saved draft")
}

func newTemplateEditCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:               "edit <template>",
		Short:             "Edits a notification template",
		Example:           `notifier template edit 42 --name "Renamed" --body "{Name} changed"`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTemplates,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindTemplateFlags(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClients()
			if err != nil {
				return err
			}
			if err = c.requireAuth(); err != nil {
				return err
			}
			return runTemplateEditor(cmd, c, editor.WithTemplate(args[0]))
		},
	}

	parent.AddCommand(cmd)
	addTemplateFlags(cmd)
}

func getDraft(ctx context.Context, c *clients, draftID string) (*notifier.Draft, error) {
	db, err := c.openDB(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	draft, err := db.GetDraft(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("failed to get draft %s: %w", draftID, err)
	}
	return draft, nil
}

func runTemplateEditor(cmd *cobra.Command, c *clients, opts ...editor.Option) error {
	ctx := cmd.Context()
	ed, err := editor.New(ctx, c.api, c.queries, opts...)
	if err != nil {
		return err
	}
	if err = ed.Settle(ctx, ed.Init()); err != nil {
		return err
	}
	if !ed.Ready() {
		return fmt.Errorf("failed to get template: %w", ed.Err(editor.ResourceTemplate))
	}

	if err = applyTemplateFlags(cmd, ed); err != nil {
		return err
	}

	if viper.GetBool("interactive") {
		if _, err = tea.NewProgram(tui.NewEditor(ed), tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
			return fmt.Errorf("failed to run editor: %w", err)
		}
		if ed.Done() {
			return finishTemplate(cmd, c, ed)
		}
		if ed.Dirty() != 0 || ed.Submission().Status == editor.SubmissionFailed {
			return saveDraft(cmd, c, ed, ed.Submission().Err)
		}
		return nil
	}

	submit, err := ed.Submit()
	if err != nil {
		printValidationErrors(cmd, err)
		return err
	}
	if err = ed.Settle(ctx, submit); err != nil {
		return err
	}
	if !ed.Done() {
		submission := ed.Submission()
		if draftErr := saveDraft(cmd, c, ed, submission.Err); draftErr != nil {
			slog.Error("Failed to save draft", tint.Err(draftErr))
		}
		return fmt.Errorf("failed to save template: %w", submission.Err)
	}
	return finishTemplate(cmd, c, ed)
}

// applyTemplateFlags applies the changed flags in dependency order.
func applyTemplateFlags(cmd *cobra.Command, ed *editor.Editor) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	if flags.Changed("name") {
		if err := ed.SetName(viper.GetString("name")); err != nil {
			return err
		}
	}

	var integration, database string
	if flags.Changed("integration") {
		integration = viper.GetString("integration")
	}
	if flags.Changed("database") {
		database = viper.GetString("database")
	}
	if err := selectSource(ctx, ed, integration, database); err != nil {
		return err
	}

	if flags.Changed("condition") {
		conditions, err := flags.GetStringArray("condition")
		if err != nil {
			return err
		}
		if err = replaceConditions(ed, conditions); err != nil {
			return err
		}
	}

	if flags.Changed("body") {
		body := viper.GetString("body")
		if err := ed.SetBody(body); err != nil {
			return err
		}
		for _, name := range notifier.UnknownPlaceholders(body, ed.Properties()) {
			cmd.PrintErrln("warning: unknown placeholder: {" + name + "}")
		}
	}

	if flags.Changed("destination") {
		if err := loaded(ed, editor.ResourceDestinations); err != nil {
			return err
		}
		destinationID, err := resolveChoice("destination", ed.DestinationChoices(), viper.GetString("destination"))
		if err != nil {
			return err
		}
		if err = ed.SetDestination(destinationID); err != nil {
			return err
		}
	}
	return nil
}

func replaceConditions(ed *editor.Editor, conditions []string) error {
	for len(ed.Draft().Conditions) > 0 {
		if err := ed.RemoveCondition(len(ed.Draft().Conditions) - 1); err != nil {
			return err
		}
	}
	if len(conditions) == 0 {
		return nil
	}
	if err := loaded(ed, editor.ResourceProperties); err != nil {
		return err
	}

	for _, s := range conditions {
		property, operator, value, err := notifier.ParseCondition(s)
		if err != nil {
			return fmt.Errorf("invalid condition %q: %w", s, err)
		}
		propertyID, err := resolveProperty(ed.Properties(), property)
		if err != nil {
			return err
		}
		if err = ed.AddCondition(); err != nil {
			return err
		}
		i := len(ed.Draft().Conditions) - 1
		if err = errors.Join(
			ed.SetConditionProperty(i, propertyID),
			ed.SetConditionOperator(i, operator),
			ed.SetConditionValue(i, value),
		); err != nil {
			return err
		}
	}
	return nil
}

func finishTemplate(cmd *cobra.Command, c *clients, ed *editor.Editor) error {
	template := ed.Result()
	if ed.Editing() {
		cmd.Printf("Updated template: %s\n", template.ID)
	} else {
		cmd.Printf("Created template: %s\n", template.ID)
	}

	if draftID := ed.DraftID(); draftID != "" {
		db, err := c.openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()
		if err = db.DeleteDraft(cmd.Context(), draftID); err != nil && !errors.Is(err, notifier.ErrDraftNotFound) {
			return fmt.Errorf("failed to remove draft %s: %w", draftID, err)
		}
	}
	return nil
}

func saveDraft(cmd *cobra.Command, c *clients, ed *editor.Editor, cause error) error {
	draft, err := notifier.NewDraft(ed.TemplateID(), ed.Draft(), cause)
	if err != nil {
		return err
	}
	draft.ID = ed.DraftID()

	db, err := c.openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	saved, err := db.SaveDraft(cmd.Context(), draft)
	if err != nil {
		return err
	}
	cmd.PrintErrf("Saved draft: %s, resume it with: notifier template new --draft %s\n", saved.ID, saved.ID)
	return nil
}

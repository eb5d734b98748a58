package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/topi314/tint"
	"golang.org/x/sync/errgroup"

	"github.com/notifier-app/notifier/internal/editor"
	"github.com/notifier-app/notifier/internal/query"
	"github.com/notifier-app/notifier/notifier"
	"github.com/notifier-app/notifier/tui"
)

func NewTemplateCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"templates", "t"},
		GroupID: "actions",
		Short:   "Manages notification templates",
	}
	parent.AddCommand(cmd)

	newTemplateListCmd(cmd)
	newTemplateGetCmd(cmd)
	newTemplateRmCmd(cmd)
	newTemplateNewCmd(cmd)
	newTemplateEditCmd(cmd)
	newTemplateDraftsCmd(cmd)
	newTemplatePlaceholdersCmd(cmd)
}

type templateOverview struct {
	templates    []notifier.Template
	integrations map[string]string
	destinations map[string]string
}

// loadTemplateOverview loads the templates together with the names needed to display them.
// Missing names only degrade the output.
func loadTemplateOverview(ctx context.Context, c *clients) (*templateOverview, error) {
	var (
		overview     templateOverview
		integrations []notifier.NotionIntegration
		destinations []notifier.Destination
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		overview.templates, err = query.Fetch(ctx, c.queries, editor.TemplatesKey(), c.api.GetTemplates)
		return err
	})
	eg.Go(func() error {
		var err error
		if integrations, err = query.Fetch(ctx, c.queries, editor.IntegrationsKey(), c.api.GetNotionIntegrations); err != nil {
			slog.Warn("Failed to load notion integrations", tint.Err(err))
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		if destinations, err = query.Fetch(ctx, c.queries, editor.DestinationsKey(), c.api.GetDestinations); err != nil {
			slog.Warn("Failed to load destinations", tint.Err(err))
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	overview.integrations = notifier.IntegrationNames(integrations)
	overview.destinations = notifier.DestinationLabels(destinations)
	return &overview, nil
}

func lookup(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}

func completeTemplates(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	c, err := newClients()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	templates, err := c.api.GetTemplates(cmd.Context())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	ids := make([]string, 0, len(templates))
	for _, template := range templates {
		ids = append(ids, template.ID+"\t"+template.Name)
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

func newTemplateListCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Lists your notification templates",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindOutputFlag(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClients()
			if err != nil {
				return err
			}
			if err = c.requireAuth(); err != nil {
				return err
			}

			overview, err := loadTemplateOverview(cmd.Context(), c)
			if err != nil {
				return fmt.Errorf("failed to get templates: %w", err)
			}

			return render(cmd, overview.templates, func() string {
				t := newTable("ID", "Name", "Integration", "Conditions", "Destination", "Updated")
				for _, template := range overview.templates {
					t.AppendRow([]any{
						template.ID,
						template.Name,
						lookup(overview.integrations, template.UserNotionIntegrationID),
						len(template.Conditions),
						lookup(overview.destinations, template.DestinationID),
						formatTime(template.UpdatedAt),
					})
				}
				t.AppendFooter([]any{"", "", "", "", "Total", len(overview.templates)})
				return t.Render()
			})
		},
	}

	parent.AddCommand(cmd)
	addOutputFlag(cmd)
}

func newTemplateGetCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:               "get <template>",
		Short:             "Shows a notification template",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTemplates,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindOutputFlag(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			templateID := args[0]

			c, err := newClients()
			if err != nil {
				return err
			}
			if err = c.requireAuth(); err != nil {
				return err
			}

			template, err := query.Fetch(cmd.Context(), c.queries, editor.TemplateKey(templateID), func(ctx context.Context) (*notifier.Template, error) {
				return c.api.GetTemplate(ctx, templateID)
			})
			if err != nil {
				return fmt.Errorf("failed to get template: %w", err)
			}

			if viper.GetString("output") == outputJSON {
				return printJSON(cmd, template)
			}

			properties := map[string]string{}
			props, err := c.api.GetNotionDatabaseProperties(cmd.Context(), template.UserNotionIntegrationID, template.NotionDatabaseID)
			if err != nil {
				slog.Warn("Failed to load database properties", tint.Err(err))
			}
			for _, prop := range props {
				properties[prop.ID] = prop.Label()
			}

			t := newTable("Field", "Value")
			t.AppendRows([]table.Row{
				{"ID", template.ID},
				{"Name", template.Name},
				{"Integration", template.UserNotionIntegrationID},
				{"Database", template.NotionDatabaseID},
				{"Destination", template.DestinationID},
				{"Created", formatTime(template.CreatedAt)},
				{"Updated", formatTime(template.UpdatedAt)},
			})
			cmd.Println(t.Render())

			if len(template.Conditions) > 0 {
				ct := newTable("#", "Property", "Operator", "Value")
				for i, condition := range template.Conditions {
					ct.AppendRow([]any{i + 1, lookup(properties, condition.PropertyID), condition.Operator.Label(), condition.Value})
				}
				cmd.Println(ct.Render())
			}

			cmd.Println("Body:")
			cmd.Println(template.Body)
			return nil
		},
	}

	parent.AddCommand(cmd)
	addOutputFlag(cmd)
}

func newTemplateRmCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:               "rm <template>...",
		Short:             "Removes notification templates",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completeTemplates,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlag("yes", cmd.Flags().Lookup("yes"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClients()
			if err != nil {
				return err
			}
			if err = c.requireAuth(); err != nil {
				return err
			}

			if !viper.GetBool("yes") {
				confirmed := false
				if err = tui.ConfirmForm(fmt.Sprintf("Remove %d template(s)?", len(args)), &confirmed).Run(); err != nil {
					return err
				}
				if !confirmed {
					return nil
				}
			}

			var errs []error
			for _, templateID := range args {
				if err = c.api.DeleteTemplate(cmd.Context(), templateID); err != nil {
					errs = append(errs, fmt.Errorf("failed to remove template %s: %w", templateID, err))
					continue
				}
				c.queries.Invalidate(editor.TemplateKey(templateID))
				cmd.Printf("Removed template: %s\n", templateID)
			}
			c.queries.Invalidate(editor.TemplatesKey())
			return errors.Join(errs...)
		},
	}

	parent.AddCommand(cmd)
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

func newTemplateDraftsCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Lists template drafts saved after failed submissions",
		Example: `notifier template drafts

notifier template new --draft <draft>

Will resume the draft.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindOutputFlag(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClients()
			if err != nil {
				return err
			}
			db, err := c.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			drafts, err := db.GetDrafts(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get drafts: %w", err)
			}

			return render(cmd, drafts, func() string {
				t := newTable("ID", "Name", "Template", "Error", "Updated")
				for _, draft := range drafts {
					templateID := draft.TemplateID
					if templateID == "" {
						templateID = "(new)"
					}
					t.AppendRow([]any{draft.ID, draft.Name, templateID, draft.Error, formatTime(draft.UpdatedAt)})
				}
				return t.Render()
			})
		},
	}
	parent.AddCommand(cmd)
	addOutputFlag(cmd)

	rm := &cobra.Command{
		Use:   "rm <draft>...",
		Short: "Removes template drafts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClients()
			if err != nil {
				return err
			}
			db, err := c.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			var errs []error
			for _, draftID := range args {
				if err = db.DeleteDraft(cmd.Context(), draftID); err != nil {
					errs = append(errs, fmt.Errorf("failed to remove draft %s: %w", draftID, err))
					continue
				}
				cmd.Printf("Removed draft: %s\n", draftID)
			}
			return errors.Join(errs...)
		},
	}
	cmd.AddCommand(rm)
}

func newTemplatePlaceholdersCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "placeholders",
		Short: "Lists the placeholders a message body can use",
		Example: `notifier template placeholders --integration Work --database Tasks

notifier template placeholders --integration Work --database Tasks --body "{Name} moved to {Status}"

Will also report placeholders in the body that do not match a property.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("integration", cmd.Flags().Lookup("integration")); err != nil {
				return err
			}
			if err := viper.BindPFlag("database", cmd.Flags().Lookup("database")); err != nil {
				return err
			}
			return viper.BindPFlag("body", cmd.Flags().Lookup("body"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClients()
			if err != nil {
				return err
			}
			if err = c.requireAuth(); err != nil {
				return err
			}

			ed, err := editor.New(cmd.Context(), c.api, c.queries)
			if err != nil {
				return err
			}
			if err = ed.Settle(cmd.Context(), ed.Init()); err != nil {
				return err
			}
			if err = selectSource(cmd.Context(), ed, viper.GetString("integration"), viper.GetString("database")); err != nil {
				return err
			}
			if err = loaded(ed, editor.ResourceProperties); err != nil {
				return err
			}

			for _, suggestion := range notifier.PlaceholderSuggestions(ed.Properties()) {
				cmd.Println(suggestion)
			}
			if body := viper.GetString("body"); body != "" {
				for _, name := range notifier.UnknownPlaceholders(body, ed.Properties()) {
					cmd.PrintErrln("unknown placeholder: {" + name + "}")
				}
			}
			return nil
		},
	}

	parent.AddCommand(cmd)
	cmd.Flags().String("integration", "", "The notion integration id or name")
	cmd.Flags().String("database", "", "The notion database id or name")
	cmd.Flags().String("body", "", "A message body to check")
	_ = cmd.MarkFlagRequired("integration")
	_ = cmd.MarkFlagRequired("database")
}

func loaded(ed *editor.Editor, resource editor.Resource) error {
	switch ed.Status(resource) {
	case query.StatusSuccess:
		return nil
	case query.StatusError:
		return fmt.Errorf("failed to load %s: %w", resource, ed.Err(resource))
	default:
		return fmt.Errorf("%s are not available", resource)
	}
}

// resolveChoice finds the choice with the given value or, case-insensitively, label.
func resolveChoice(kind string, choices []editor.Choice, s string) (string, error) {
	var matches []string
	for _, choice := range choices {
		if choice.Value == s {
			return choice.Value, nil
		}
		if strings.EqualFold(choice.Label, s) {
			matches = append(matches, choice.Value)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("unknown %s: %s", kind, s)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%s %q is ambiguous, use one of the ids: %s", kind, s, strings.Join(matches, ", "))
	}
}

func resolveProperty(properties []notifier.NotionProperty, s string) (string, error) {
	choices := make([]editor.Choice, 0, len(properties))
	for _, property := range properties {
		choices = append(choices, editor.Choice{Label: property.Name, Value: property.ID})
	}
	return resolveChoice("property", choices, s)
}

// selectSource selects integration and database by id or name and waits for the property set.
func selectSource(ctx context.Context, ed *editor.Editor, integration string, database string) error {
	if integration != "" {
		if err := loaded(ed, editor.ResourceIntegrations); err != nil {
			return err
		}
		integrationID, err := resolveChoice("integration", ed.IntegrationChoices(), integration)
		if err != nil {
			return err
		}
		cmd, err := ed.SelectIntegration(integrationID)
		if err != nil {
			return err
		}
		if err = ed.Settle(ctx, cmd); err != nil {
			return err
		}
	}
	if database != "" {
		if err := loaded(ed, editor.ResourceDatabases); err != nil {
			return err
		}
		databaseID, err := resolveChoice("database", ed.DatabaseChoices(), database)
		if err != nil {
			return err
		}
		cmd, err := ed.SelectDatabase(databaseID)
		if err != nil {
			return err
		}
		if err = ed.Settle(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

func printValidationErrors(cmd *cobra.Command, err error) {
	var errs notifier.ValidationErrors
	if !errors.As(err, &errs) {
		return
	}
	paths := make([]string, 0, len(errs))
	for path := range errs {
		paths = append(paths, path)
	}
	slices.Sort(paths)

	t := newTable("Field", "Error")
	for _, path := range paths {
		t.AppendRow([]any{path, errs[path]})
	}
	cmd.PrintErrln(t.Render())
}

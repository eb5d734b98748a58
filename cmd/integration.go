package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notifier-app/notifier/internal/editor"
	"github.com/notifier-app/notifier/internal/query"
	"github.com/notifier-app/notifier/notifier"
	"github.com/notifier-app/notifier/tui"
)

func NewIntegrationCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "integration",
		Aliases: []string{"integrations", "i"},
		GroupID: "actions",
		Short:   "Manages Notion integrations",
	}
	parent.AddCommand(cmd)

	newIntegrationListCmd(cmd)
	newIntegrationNewCmd(cmd)
	newIntegrationRmCmd(cmd)
	newIntegrationDatabasesCmd(cmd)
	newIntegrationPropertiesCmd(cmd)
}

func getIntegrations(ctx context.Context, c *clients) ([]notifier.NotionIntegration, error) {
	return query.Fetch(ctx, c.queries, editor.IntegrationsKey(), c.api.GetNotionIntegrations)
}

func getDatabases(ctx context.Context, c *clients, integrationID string) ([]notifier.NotionDatabase, error) {
	return query.Fetch(ctx, c.queries, editor.DatabasesKey(integrationID), func(ctx context.Context) ([]notifier.NotionDatabase, error) {
		return c.api.GetNotionDatabases(ctx, integrationID)
	})
}

// resolveIntegration accepts an integration id or name.
func resolveIntegration(ctx context.Context, c *clients, s string) (string, error) {
	integrations, err := getIntegrations(ctx, c)
	if err != nil {
		return "", fmt.Errorf("failed to get notion integrations: %w", err)
	}
	choices := make([]editor.Choice, 0, len(integrations))
	for _, integration := range integrations {
		choices = append(choices, editor.Choice{Label: integration.IntegrationName, Value: integration.ID})
	}
	return resolveChoice("integration", choices, s)
}

func resolveDatabase(ctx context.Context, c *clients, integrationID string, s string) (string, error) {
	databases, err := getDatabases(ctx, c, integrationID)
	if err != nil {
		return "", fmt.Errorf("failed to get notion databases: %w", err)
	}
	choices := make([]editor.Choice, 0, len(databases))
	for _, database := range databases {
		choices = append(choices, editor.Choice{Label: database.Name, Value: database.ID})
	}
	return resolveChoice("database", choices, s)
}

func completeIntegrations(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	c, err := newClients()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	integrations, err := c.api.GetNotionIntegrations(cmd.Context())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	ids := make([]string, 0, len(integrations))
	for _, integration := range integrations {
		ids = append(ids, integration.ID+"\t"+integration.IntegrationName)
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

func newIntegrationListCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Lists your Notion integrations",
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

			integrations, err := getIntegrations(cmd.Context(), c)
			if err != nil {
				return fmt.Errorf("failed to get notion integrations: %w", err)
			}

			return render(cmd, integrations, func() string {
				t := newTable("ID", "Name", "Created")
				for _, integration := range integrations {
					t.AppendRow([]any{integration.ID, integration.IntegrationName, formatTime(integration.CreatedAt)})
				}
				t.AppendFooter([]any{"", "Total", len(integrations)})
				return t.Render()
			})
		},
	}

	parent.AddCommand(cmd)
	addOutputFlag(cmd)
}

func newIntegrationNewCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Adds a Notion integration",
		Example: `notifier integration new

Will ask for the integration name and token.

NOTIFIER_NOTION_TOKEN=secret_xxx notifier integration new --name Work

Will read the token from the environment.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("name", cmd.Flags().Lookup("name")); err != nil {
				return err
			}
			return viper.BindPFlag("notion_token", cmd.Flags().Lookup("token"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClients()
			if err != nil {
				return err
			}
			if err = c.requireAuth(); err != nil {
				return err
			}

			rq := notifier.NotionIntegrationCreateRequest{
				IntegrationName:        viper.GetString("name"),
				NotionIntegrationToken: viper.GetString("notion_token"),
			}
			if rq.IntegrationName == "" || rq.NotionIntegrationToken == "" {
				if err = tui.IntegrationForm(&rq).Run(); err != nil {
					return fmt.Errorf("failed to read integration: %w", err)
				}
			}
			rq.IntegrationName = strings.TrimSpace(rq.IntegrationName)
			rq.NotionIntegrationToken = strings.TrimSpace(rq.NotionIntegrationToken)
			if err = rq.Validate(); err != nil {
				printValidationErrors(cmd, err)
				return err
			}

			integration, err := c.api.CreateNotionIntegration(cmd.Context(), rq)
			if err != nil {
				return fmt.Errorf("failed to add notion integration: %w", err)
			}
			c.queries.Invalidate(editor.IntegrationsKey())
			cmd.Printf("Added notion integration: %s (%s)\n", integration.ID, integration.IntegrationName)
			return nil
		},
	}

	parent.AddCommand(cmd)
	cmd.Flags().StringP("name", "n", "", "The integration name")
	cmd.Flags().StringP("token", "t", "", "The Notion internal integration token, prefer NOTIFIER_NOTION_TOKEN")
}

func newIntegrationRmCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:               "rm <integration>...",
		Short:             "Removes Notion integrations",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completeIntegrations,
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
				if err = tui.ConfirmForm(fmt.Sprintf("Remove %d notion integration(s)? Templates using them stop working.", len(args)), &confirmed).Run(); err != nil {
					return err
				}
				if !confirmed {
					return nil
				}
			}

			var errs []error
			for _, integrationID := range args {
				if err = c.api.DeleteNotionIntegration(cmd.Context(), integrationID); err != nil {
					errs = append(errs, fmt.Errorf("failed to remove notion integration %s: %w", integrationID, err))
					continue
				}
				c.queries.Invalidate(editor.DatabasesKey(integrationID))
				c.queries.Invalidate(query.NewKey("notionProperties", integrationID))
				cmd.Printf("Removed notion integration: %s\n", integrationID)
			}
			c.queries.Invalidate(editor.IntegrationsKey())
			return errors.Join(errs...)
		},
	}

	parent.AddCommand(cmd)
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

func newIntegrationDatabasesCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:               "databases <integration>",
		Aliases:           []string{"dbs"},
		Short:             "Lists the Notion databases shared with an integration",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeIntegrations,
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

			integrationID, err := resolveIntegration(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			databases, err := getDatabases(cmd.Context(), c, integrationID)
			if err != nil {
				return fmt.Errorf("failed to get notion databases: %w", err)
			}

			return render(cmd, databases, func() string {
				t := newTable("ID", "Name")
				for _, database := range databases {
					t.AppendRow([]any{database.ID, database.Name})
				}
				t.AppendFooter([]any{"Total", len(databases)})
				return t.Render()
			})
		},
	}

	parent.AddCommand(cmd)
	addOutputFlag(cmd)
}

func newIntegrationPropertiesCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "properties <integration> <database>",
		Aliases: []string{"props"},
		Short:   "Lists the properties of a Notion database",
		Args:    cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return completeIntegrations(cmd, args, toComplete)
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
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

			integrationID, err := resolveIntegration(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			databaseID, err := resolveDatabase(cmd.Context(), c, integrationID, args[1])
			if err != nil {
				return err
			}
			properties, err := query.Fetch(cmd.Context(), c.queries, editor.PropertiesKey(integrationID, databaseID), func(ctx context.Context) ([]notifier.NotionProperty, error) {
				return c.api.GetNotionDatabaseProperties(ctx, integrationID, databaseID)
			})
			if err != nil {
				return fmt.Errorf("failed to get database properties: %w", err)
			}

			return render(cmd, properties, func() string {
				t := newTable("ID", "Name", "Type", "Options")
				for _, property := range properties {
					options := make([]string, 0, len(property.Options))
					for _, option := range property.Options {
						options = append(options, option.Name)
					}
					t.AppendRow([]any{property.ID, property.Name, property.Type, strings.Join(options, ", ")})
				}
				return t.Render()
			})
		},
	}

	parent.AddCommand(cmd)
	addOutputFlag(cmd)
}

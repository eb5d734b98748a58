package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notifier-app/notifier/internal/editor"
	"github.com/notifier-app/notifier/internal/query"
	"github.com/notifier-app/notifier/notifier"
	"github.com/notifier-app/notifier/tui"
)

func NewDestinationCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "destination",
		Aliases: []string{"destinations", "d"},
		GroupID: "actions",
		Short:   "Manages webhook destinations",
	}
	parent.AddCommand(cmd)

	newDestinationListCmd(cmd)
	newDestinationGetCmd(cmd)
	newDestinationNewCmd(cmd)
	newDestinationEditCmd(cmd)
	newDestinationRmCmd(cmd)
}

func completeDestinations(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	c, err := newClients()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	destinations, err := c.api.GetDestinations(cmd.Context())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	ids := make([]string, 0, len(destinations))
	for _, destination := range destinations {
		ids = append(ids, destination.ID+"\t"+destination.Label())
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

func getDestinations(ctx context.Context, c *clients) ([]notifier.Destination, error) {
	return query.Fetch(ctx, c.queries, editor.DestinationsKey(), c.api.GetDestinations)
}

func newDestinationListCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Lists your webhook destinations",
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

			destinations, err := getDestinations(cmd.Context(), c)
			if err != nil {
				return fmt.Errorf("failed to get destinations: %w", err)
			}

			return render(cmd, destinations, func() string {
				t := newTable("ID", "Name", "Webhook URL", "Created")
				for _, destination := range destinations {
					t.AppendRow([]any{destination.ID, destination.Label(), destination.WebhookURL, formatTime(destination.CreatedAt)})
				}
				t.AppendFooter([]any{"", "", "Total", len(destinations)})
				return t.Render()
			})
		},
	}

	parent.AddCommand(cmd)
	addOutputFlag(cmd)
}

func newDestinationGetCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:               "get <destination>",
		Short:             "Shows a webhook destination",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeDestinations,
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

			destination, err := c.api.GetDestination(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get destination: %w", err)
			}

			return render(cmd, destination, func() string {
				t := newTable("Field", "Value")
				t.AppendRows([]table.Row{
					{"ID", destination.ID},
					{"Name", destination.Name},
					{"Webhook URL", destination.WebhookURL},
					{"Created", formatTime(destination.CreatedAt)},
				})
				return t.Render()
			})
		},
	}

	parent.AddCommand(cmd)
	addOutputFlag(cmd)
}

func addDestinationFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("name", "n", "", "The destination name")
	cmd.Flags().StringP("webhook-url", "w", "", "The webhook url notifications are posted to")
}

func bindDestinationFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlag("name", cmd.Flags().Lookup("name")); err != nil {
		return err
	}
	return viper.BindPFlag("webhook-url", cmd.Flags().Lookup("webhook-url"))
}

func newDestinationNewCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Creates a webhook destination",
		Example: `notifier destination new

Will ask for the name and webhook url.

notifier destination new --name Ops --webhook-url https://hooks.slack.com/services/T000/B000/XXXX`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindDestinationFlags(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClients()
			if err != nil {
				return err
			}
			if err = c.requireAuth(); err != nil {
				return err
			}

			rq := notifier.DestinationRequest{
				Name:       viper.GetString("name"),
				WebhookURL: viper.GetString("webhook-url"),
			}
			if rq.WebhookURL == "" {
				if err = tui.DestinationForm(&rq, "New destination").Run(); err != nil {
					return fmt.Errorf("failed to read destination: %w", err)
				}
			}
			return saveDestination(cmd, c, "", rq)
		},
	}

	parent.AddCommand(cmd)
	addDestinationFlags(cmd)
}

func newDestinationEditCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:               "edit <destination>",
		Short:             "Edits a webhook destination",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeDestinations,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindDestinationFlags(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClients()
			if err != nil {
				return err
			}
			if err = c.requireAuth(); err != nil {
				return err
			}

			destination, err := c.api.GetDestination(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get destination: %w", err)
			}

			rq := notifier.DestinationRequest{
				Name:       destination.Name,
				WebhookURL: destination.WebhookURL,
			}
			flags := cmd.Flags()
			if flags.Changed("name") {
				rq.Name = viper.GetString("name")
			}
			if flags.Changed("webhook-url") {
				rq.WebhookURL = viper.GetString("webhook-url")
			}
			if !flags.Changed("name") && !flags.Changed("webhook-url") {
				if err = tui.DestinationForm(&rq, "Edit destination").Run(); err != nil {
					return fmt.Errorf("failed to read destination: %w", err)
				}
			}
			return saveDestination(cmd, c, destination.ID, rq)
		},
	}

	parent.AddCommand(cmd)
	addDestinationFlags(cmd)
}

// saveDestination creates the destination when id is empty, otherwise updates it.
func saveDestination(cmd *cobra.Command, c *clients, id string, rq notifier.DestinationRequest) error {
	rq.Name = strings.TrimSpace(rq.Name)
	rq.WebhookURL = strings.TrimSpace(rq.WebhookURL)
	if err := rq.Validate(); err != nil {
		printValidationErrors(cmd, err)
		return err
	}

	var (
		destination *notifier.Destination
		err         error
	)
	if id == "" {
		destination, err = c.api.CreateDestination(cmd.Context(), rq)
	} else {
		destination, err = c.api.UpdateDestination(cmd.Context(), id, rq)
	}
	if err != nil {
		return fmt.Errorf("failed to save destination: %w", err)
	}
	c.queries.Invalidate(editor.DestinationsKey())

	if id == "" {
		cmd.Printf("Created destination: %s (%s)\n", destination.ID, destination.Label())
	} else {
		cmd.Printf("Updated destination: %s (%s)\n", destination.ID, destination.Label())
	}
	return nil
}

func newDestinationRmCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:               "rm <destination>...",
		Short:             "Removes webhook destinations",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completeDestinations,
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
				if err = tui.ConfirmForm(fmt.Sprintf("Remove %d destination(s)?", len(args)), &confirmed).Run(); err != nil {
					return err
				}
				if !confirmed {
					return nil
				}
			}

			var errs []error
			for _, destinationID := range args {
				if err = c.api.DeleteDestination(cmd.Context(), destinationID); err != nil {
					errs = append(errs, fmt.Errorf("failed to remove destination %s: %w", destinationID, err))
					continue
				}
				cmd.Printf("Removed destination: %s\n", destinationID)
			}
			c.queries.Invalidate(editor.DestinationsKey())
			return errors.Join(errs...)
		},
	}

	parent.AddCommand(cmd)
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

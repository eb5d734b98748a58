package cmd

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notifier-app/notifier/internal/cfg"
)

var errInvalidEnvArgs = errors.New("invalid argument with -w flag")

func parseEnvAssignments(write []string) (map[string]string, error) {
	values := make(map[string]string, len(write))
	for _, kv := range write {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid variable %q, use NAME=VALUE", kv)
		}
		values[strings.ToUpper(name)] = value
	}
	return values, nil
}

func completeEnvNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	entries, err := cfg.Get()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var names []string
	for name := range entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, cobra.ShellCompDirectiveNoFileComp
}

func NewEnvCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Prints or sets notifier variables",
		Example: `notifier env

Will print all variables with secrets masked.

notifier env -w AUTH_API_KEY=VALUE -w SERVER=http://localhost:8080/api/v1

Will set AUTH_API_KEY and SERVER in the notifier env (defaults to ~/.notifier).

notifier env -u ID_TOKEN

Will remove ID_TOKEN from the notifier env.`,
		Args:              cobra.ArbitraryArgs,
		ValidArgsFunction: completeEnvNames,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("write", cmd.Flags().Lookup("write")); err != nil {
				return err
			}
			if err := viper.BindPFlag("unset", cmd.Flags().Lookup("unset")); err != nil {
				return err
			}
			return viper.BindPFlag("show-secrets", cmd.Flags().Lookup("show-secrets"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			write, err := cmd.Flags().GetStringArray("write")
			if err != nil {
				return err
			}
			unset := viper.GetStringSlice("unset")

			if len(write) == 0 && len(unset) == 0 {
				entries, err := cfg.Get()
				if err != nil {
					return fmt.Errorf("failed to get config: %w", err)
				}

				for i := range args {
					args[i] = strings.ToUpper(args[i])
				}

				names := make([]string, 0, len(entries))
				for name := range entries {
					if len(args) > 0 && !slices.Contains(args, strings.ToUpper(name)) {
						continue
					}
					names = append(names, name)
				}
				slices.Sort(names)

				showSecrets := viper.GetBool("show-secrets")
				for _, name := range names {
					value := entries[name]
					if !showSecrets {
						value = cfg.Mask(name, value)
					}
					cmd.Printf("%s='%s'\n", name, value)
				}
				return nil
			}

			if len(args) > 0 {
				return errInvalidEnvArgs
			}

			values, err := parseEnvAssignments(write)
			if err != nil {
				return err
			}
			path, err := cfg.Update(func(m map[string]string) {
				for name, value := range values {
					m[name] = value
				}
				for _, name := range unset {
					delete(m, strings.ToUpper(name))
				}
			})
			if err != nil {
				return fmt.Errorf("failed to update config: %w", err)
			}
			cmd.Printf("Updated %s\n", path)
			return nil
		},
	}

	parent.AddCommand(cmd)
	cmd.Flags().StringArrayP("write", "w", nil, "Write one or more notifier variables")
	cmd.Flags().StringSliceP("unset", "u", nil, "Remove one or more notifier variables")
	cmd.Flags().Bool("show-secrets", false, "Print tokens and passwords unmasked")

	for _, name := range []string{"write", "unset"} {
		if err := cmd.RegisterFlagCompletionFunc(name, completeEnvNames); err != nil {
			log.Printf("failed to register %s flag completion func: %s", name, err)
		}
	}
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/topi314/tint"

	"github.com/notifier-app/notifier/internal/cfg"
	"github.com/notifier-app/notifier/internal/log"
	"github.com/notifier-app/notifier/internal/query"
	"github.com/notifier-app/notifier/internal/ver"
	"github.com/notifier-app/notifier/notifier"
)

var shutdownOtel func(ctx context.Context) error

func NewRootCmd(version ver.Version) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "notifier",
		Short:        "notifier manages notification templates that forward Notion database changes to webhooks",
		Long:         "",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("server", cmd.Root().PersistentFlags().Lookup("server")); err != nil {
				return err
			}
			if err := viper.BindPFlag("log.level", cmd.Root().PersistentFlags().Lookup("log-level")); err != nil {
				return err
			}
			return setup(version)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if shutdownOtel == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return shutdownOtel(ctx)
		},
	}
	cmd.AddGroup(&cobra.Group{
		ID:    "actions",
		Title: "Actions",
	})
	cmd.AddGroup(&cobra.Group{
		ID:    "account",
		Title: "Account",
	})

	var cfgFile string
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.notifier)")
	cmd.PersistentFlags().StringP("server", "s", "", "notifier api address")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolP("help", "h", false, "help for notifier")
	cmd.CompletionOptions.DisableDescriptions = true
	cobra.OnInitialize(initConfig(&cfgFile))

	return cmd
}

func Execute(command *cobra.Command) {
	err := command.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func initConfig(cfgFile *string) func() {
	return func() {
		viper.SetDefault("server", notifier.DefaultServer)
		viper.SetDefault("http_timeout", "10s")
		viper.SetDefault("formatter", "terminal16m")
		viper.SetDefault("style", "monokai")
		viper.SetDefault("log.level", "warn")
		viper.SetDefault("log.format", log.FormatText)
		viper.SetDefault("log.add_source", false)
		viper.SetDefault("log.no_color", false)
		viper.SetDefault("query.stale_time", query.DefaultStaleTime.String())
		viper.SetDefault("database.type", "sqlite")
		viper.SetDefault("database.debug", false)
		viper.SetDefault("database.expire_after", "720h")
		viper.SetDefault("database.cleanup_interval", "1h")
		viper.SetDefault("database.path", defaultDatabasePath())
		viper.SetDefault("database.host", "localhost")
		viper.SetDefault("database.port", 5432)
		viper.SetDefault("database.username", "notifier")
		viper.SetDefault("database.password", "password")
		viper.SetDefault("database.database", "notifier")
		viper.SetDefault("database.ssl_mode", "disable")

		if *cfgFile != "" {
			viper.SetConfigFile(*cfgFile)
		} else {
			home, err := os.UserHomeDir()
			cobra.CheckErr(err)

			viper.SetConfigName(cfg.FileName)
			viper.SetConfigType("env")
			viper.AddConfigPath(home)
		}
		viper.SetEnvPrefix("notifier")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		_ = viper.ReadInConfig()
	}
}

func defaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "notifier.db"
	}
	return filepath.Join(dir, "notifier", "drafts.db")
}

func loadConfig() (notifier.Config, error) {
	var config notifier.Config
	if err := viper.Unmarshal(&config, func(c *mapstructure.DecoderConfig) {
		c.TagName = "cfg"
		c.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
		)
	}); err != nil {
		return notifier.Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, nil
}

func setup(version ver.Version) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	log.Setup(nil, config.Log)
	slog.Debug("Loaded config", slog.String("path", viper.ConfigFileUsed()), slog.String("config", config.String()))

	if config.Otel == nil {
		return nil
	}
	shutdown, err := notifier.SetupOtel(version.Version, *config.Otel)
	if err != nil {
		slog.Error("Failed to setup otel", tint.Err(err))
		return nil
	}
	shutdownOtel = shutdown
	return nil
}

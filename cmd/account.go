package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notifier-app/notifier/internal/cfg"
	"github.com/notifier-app/notifier/notifier"
	"github.com/notifier-app/notifier/tui"
)

func NewAccountCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "account",
		GroupID: "account",
		Short:   "Manages your notifier account",
	}
	parent.AddCommand(cmd)

	newLoginCmd(cmd)
	newSignupCmd(cmd)
	newLogoutCmd(cmd)
	newResetPasswordCmd(cmd)
	newPasswdCmd(cmd)
	newWhoamiCmd(cmd)
}

func newLoginCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Logs in with email and password",
		Example: `notifier account login

Will ask for your email and password.

notifier account login --email you@example.com --password hunter22`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("email", cmd.Flags().Lookup("email")); err != nil {
				return err
			}
			return viper.BindPFlag("password", cmd.Flags().Lookup("password"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			email := viper.GetString("email")
			password := viper.GetString("password")

			c, err := newClients()
			if err != nil {
				return err
			}
			if err = c.requireAPIKey(); err != nil {
				return err
			}

			if email == "" || password == "" {
				if err = tui.LoginForm(&email, &password).Run(); err != nil {
					return fmt.Errorf("failed to read credentials: %w", err)
				}
			}
			if err = notifier.ValidateEmail(strings.TrimSpace(email)); err != nil {
				return err
			}

			session, err := c.identity.SignIn(cmd.Context(), strings.TrimSpace(email), password)
			if err != nil {
				return fmt.Errorf("failed to log in: %w", err)
			}
			cmd.Printf("Logged in as %s, session saved to: %s\n", session.Email, cfg.Path())
			return nil
		},
	}

	parent.AddCommand(cmd)
	cmd.Flags().StringP("email", "e", "", "The email address of your account")
	cmd.Flags().StringP("password", "p", "", "The password of your account")
}

func newSignupCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Creates a new account and logs in",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("email", cmd.Flags().Lookup("email")); err != nil {
				return err
			}
			return viper.BindPFlag("password", cmd.Flags().Lookup("password"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			email := viper.GetString("email")
			password := viper.GetString("password")
			confirm := password

			c, err := newClients()
			if err != nil {
				return err
			}
			if err = c.requireAPIKey(); err != nil {
				return err
			}

			if email == "" || password == "" {
				if err = tui.SignupForm(&email, &password, &confirm).Run(); err != nil {
					return fmt.Errorf("failed to read account details: %w", err)
				}
			}
			email = strings.TrimSpace(email)
			if err = notifier.ValidateEmail(email); err != nil {
				return err
			}
			if err = notifier.ValidatePassword(password); err != nil {
				return err
			}
			if password != confirm {
				return notifier.ErrPasswordMismatch
			}

			session, err := c.identity.SignUp(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}
			cmd.Printf("Created account %s and logged in\n", session.Email)
			return nil
		},
	}

	parent.AddCommand(cmd)
	cmd.Flags().StringP("email", "e", "", "The email address for the new account")
	cmd.Flags().StringP("password", "p", "", "The password for the new account")
}

func newLogoutCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Removes the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClients()
			if err != nil {
				return err
			}
			if err = c.identity.SignOut(); err != nil {
				return fmt.Errorf("failed to remove session: %w", err)
			}
			cmd.Println("Logged out")
			return nil
		},
	}

	parent.AddCommand(cmd)
}

func newResetPasswordCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Sends a password reset email",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlag("email", cmd.Flags().Lookup("email"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			email := viper.GetString("email")

			c, err := newClients()
			if err != nil {
				return err
			}
			if err = c.requireAPIKey(); err != nil {
				return err
			}

			if email == "" {
				if err = tui.ResetPasswordForm(&email).Run(); err != nil {
					return fmt.Errorf("failed to read email: %w", err)
				}
			}
			email = strings.TrimSpace(email)
			if err = notifier.ValidateEmail(email); err != nil {
				return err
			}

			if err = c.identity.SendPasswordReset(cmd.Context(), email); err != nil {
				return fmt.Errorf("failed to send password reset email: %w", err)
			}
			cmd.Printf("Password reset email sent to %s\n", email)
			return nil
		},
	}

	parent.AddCommand(cmd)
	cmd.Flags().StringP("email", "e", "", "The email address of your account")
}

func newPasswdCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Changes the password of the logged in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClients()
			if err != nil {
				return err
			}
			if err = c.requireAuth(); err != nil {
				return err
			}

			var current, password, confirm string
			if err = tui.PasswordChangeForm(&current, &password, &confirm).Run(); err != nil {
				return fmt.Errorf("failed to read passwords: %w", err)
			}
			if err = notifier.ValidatePasswordChange(current, password, confirm); err != nil {
				return err
			}

			if err = c.identity.ChangePassword(cmd.Context(), current, password); err != nil {
				return fmt.Errorf("failed to change password: %w", err)
			}
			cmd.Println("Password changed")
			return nil
		},
	}

	parent.AddCommand(cmd)
}

func newWhoamiCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Prints the logged in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClients()
			if err != nil {
				return err
			}
			session := c.identity.Session()
			if session == nil {
				cmd.Println("Not logged in")
				return nil
			}

			t := newTable("Email", "User ID", "Token Expires")
			t.AppendRow([]any{session.Email, session.UserID, formatTime(session.ExpiresAt)})
			cmd.Println(t.Render())
			return nil
		},
	}

	parent.AddCommand(cmd)
}

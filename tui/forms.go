package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/notifier-app/notifier/notifier"
)

var errRequired = errors.New("required")

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errRequired
	}
	return nil
}

func newForm(groups ...*huh.Group) *huh.Form {
	return huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
}

func LoginForm(email *string, password *string) *huh.Form {
	return newForm(huh.NewGroup(
		huh.NewInput().
			Title("Email").
			Value(email).
			Placeholder("you@example.com").
			Validate(notifier.ValidateEmail),
		huh.NewInput().
			Title("Password").
			Value(password).
			Password(true).
			Validate(required),
	).Title("Log in"))
}

func SignupForm(email *string, password *string, confirm *string) *huh.Form {
	return newForm(huh.NewGroup(
		huh.NewInput().
			Title("Email").
			Value(email).
			Placeholder("you@example.com").
			Validate(notifier.ValidateEmail),
		huh.NewInput().
			Title("Password").
			Description("At least 6 characters").
			Value(password).
			Password(true).
			Validate(notifier.ValidatePassword),
		huh.NewInput().
			Title("Confirm password").
			Value(confirm).
			Password(true).
			Validate(func(s string) error {
				if s != *password {
					return notifier.ErrPasswordMismatch
				}
				return nil
			}),
	).Title("Create account"))
}

func ResetPasswordForm(email *string) *huh.Form {
	return newForm(huh.NewGroup(
		huh.NewInput().
			Title("Email").
			Description("We will send you a link to reset your password").
			Value(email).
			Validate(notifier.ValidateEmail),
	).Title("Reset password"))
}

func PasswordChangeForm(current *string, password *string, confirm *string) *huh.Form {
	return newForm(huh.NewGroup(
		huh.NewInput().
			Title("Current password").
			Value(current).
			Password(true).
			Validate(required),
		huh.NewInput().
			Title("New password").
			Value(password).
			Password(true).
			Validate(notifier.ValidatePassword),
		huh.NewInput().
			Title("Confirm new password").
			Value(confirm).
			Password(true).
			Validate(func(s string) error {
				if s != *password {
					return notifier.ErrPasswordMismatch
				}
				return nil
			}),
	).Title("Change password"))
}

func DestinationForm(rq *notifier.DestinationRequest, title string) *huh.Form {
	return newForm(huh.NewGroup(
		huh.NewInput().
			Title("Name").
			Description("Optional").
			Value(&rq.Name),
		huh.NewInput().
			Title("Webhook URL").
			Placeholder("https://hooks.slack.com/services/...").
			Value(&rq.WebhookURL).
			Validate(notifier.ValidateWebhookURL),
	).Title(title))
}

func IntegrationForm(rq *notifier.NotionIntegrationCreateRequest) *huh.Form {
	return newForm(huh.NewGroup(
		huh.NewInput().
			Title("Integration name").
			Value(&rq.IntegrationName).
			CharLimit(notifier.MaxIntegrationNameLength).
			Validate(notifier.ValidateIntegrationName),
		huh.NewInput().
			Title("Notion integration token").
			Placeholder(notifier.NotionTokenPrefix+"...").
			Value(&rq.NotionIntegrationToken).
			Password(true).
			Validate(notifier.ValidateIntegrationToken),
	).Title("Add Notion integration"))
}

func ConfirmForm(title string, confirmed *bool) *huh.Form {
	return newForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Affirmative("Yes").
			Negative("No").
			Value(confirmed),
	))
}

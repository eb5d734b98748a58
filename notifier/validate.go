package notifier

import (
	"errors"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"
)

const (
	MaxIntegrationNameLength = 50
	MinPasswordLength        = 6
	NotionTokenPrefix        = "secret_"
)

var (
	ErrIntegrationNameRequired = errors.New("integration name is required")
	ErrIntegrationNameTooLong  = errors.New("integration name must be 50 characters or less")
	ErrIntegrationTokenInvalid = errors.New("notion integration token must start with \"secret_\"")
	ErrWebhookURLRequired      = errors.New("webhook url is required")
	ErrWebhookURLInvalid       = errors.New("webhook url is not a valid url")
	ErrEmailInvalid            = errors.New("email address is not valid")
	ErrPasswordRequired        = errors.New("password is required")
	ErrPasswordTooShort        = errors.New("password must be at least 6 characters")
	ErrPasswordMismatch        = errors.New("passwords do not match")
)

// ValidationErrors maps a field path like "name" or "conditions.0.value" to its message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	paths := make([]string, 0, len(v))
	for path := range v {
		paths = append(paths, path)
	}
	slices.Sort(paths)

	msgs := make([]string, 0, len(paths))
	for _, path := range paths {
		msgs = append(msgs, path+": "+v[path])
	}
	return "invalid input: " + strings.Join(msgs, ", ")
}

func (v ValidationErrors) add(path string, err error) {
	if err != nil {
		v[path] = err.Error()
	}
}

func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func ValidateIntegrationName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrIntegrationNameRequired
	}
	if utf8.RuneCountInString(name) > MaxIntegrationNameLength {
		return ErrIntegrationNameTooLong
	}
	return nil
}

func ValidateIntegrationToken(token string) error {
	if !strings.HasPrefix(token, NotionTokenPrefix) || len(token) == len(NotionTokenPrefix) {
		return ErrIntegrationTokenInvalid
	}
	return nil
}

func (r NotionIntegrationCreateRequest) Validate() error {
	errs := ValidationErrors{}
	errs.add("integrationName", ValidateIntegrationName(r.IntegrationName))
	errs.add("notionIntegrationToken", ValidateIntegrationToken(r.NotionIntegrationToken))
	return errs.Err()
}

func ValidateWebhookURL(webhookURL string) error {
	if strings.TrimSpace(webhookURL) == "" {
		return ErrWebhookURLRequired
	}
	if !govalidator.IsURL(webhookURL) || !govalidator.IsRequestURL(webhookURL) {
		return ErrWebhookURLInvalid
	}
	return nil
}

func (r DestinationRequest) Validate() error {
	errs := ValidationErrors{}
	errs.add("webhookUrl", ValidateWebhookURL(r.WebhookURL))
	return errs.Err()
}

func ValidateEmail(email string) error {
	if !govalidator.IsEmail(email) {
		return ErrEmailInvalid
	}
	return nil
}

func ValidatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// ValidatePasswordChange checks the account password form.
func ValidatePasswordChange(current string, password string, confirm string) error {
	errs := ValidationErrors{}
	if current == "" {
		errs.add("currentPassword", ErrPasswordRequired)
	}
	errs.add("newPassword", ValidatePassword(password))
	if password != confirm {
		errs.add("confirmPassword", ErrPasswordMismatch)
	}
	return errs.Err()
}

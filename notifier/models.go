package notifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorContains    Operator = "contains"
	OperatorNotContains Operator = "not_contains"
)

var Operators = []Operator{
	OperatorEquals,
	OperatorNotEquals,
	OperatorContains,
	OperatorNotContains,
}

func (o Operator) Valid() bool {
	switch o {
	case OperatorEquals, OperatorNotEquals, OperatorContains, OperatorNotContains:
		return true
	}
	return false
}

func (o Operator) Label() string {
	switch o {
	case OperatorEquals:
		return "Equals"
	case OperatorNotEquals:
		return "Not equals"
	case OperatorContains:
		return "Contains"
	case OperatorNotContains:
		return "Not contains"
	}
	return string(o)
}

type Condition struct {
	PropertyID string   `json:"propertyId"`
	Operator   Operator `json:"operator"`
	Value      string   `json:"value"`
}

// Conditions decodes from an array, null or the empty object older templates were created with.
type Conditions []Condition

func (c *Conditions) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*c = Conditions{}
		return nil
	case len(data) > 0 && data[0] == '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if len(obj) > 0 {
			return fmt.Errorf("unexpected conditions object with %d keys", len(obj))
		}
		*c = Conditions{}
		return nil
	}

	var conditions []Condition
	if err := json.Unmarshal(data, &conditions); err != nil {
		return err
	}
	if conditions == nil {
		conditions = []Condition{}
	}
	*c = conditions
	return nil
}

func (c Conditions) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Condition(c))
}

type Template struct {
	ID                      string     `json:"id"`
	Name                    string     `json:"name"`
	UserNotionIntegrationID string     `json:"userNotionIntegrationId"`
	NotionDatabaseID        string     `json:"notionDatabaseId"`
	Conditions              Conditions `json:"conditions"`
	Body                    string     `json:"body"`
	DestinationID           string     `json:"destinationId"`
	CreatedAt               time.Time  `json:"createdAt"`
	UpdatedAt               time.Time  `json:"updatedAt"`
}

type TemplateRequest struct {
	Name                    string     `json:"name"`
	UserNotionIntegrationID string     `json:"userNotionIntegrationId"`
	NotionDatabaseID        string     `json:"notionDatabaseId"`
	Conditions              Conditions `json:"conditions"`
	Body                    string     `json:"body"`
	DestinationID           string     `json:"destinationId"`
}

type NotionIntegration struct {
	ID              string    `json:"id"`
	IntegrationName string    `json:"integrationName"`
	CreatedAt       time.Time `json:"createdAt"`
}

type NotionIntegrationCreateRequest struct {
	IntegrationName        string `json:"integrationName"`
	NotionIntegrationToken string `json:"notionIntegrationToken"`
}

type NotionDatabase struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type NotionPropertyOption struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type NotionProperty struct {
	ID      string                 `json:"id"`
	Name    string                 `json:"name"`
	Type    string                 `json:"type"`
	Options []NotionPropertyOption `json:"options,omitempty"`
}

func (p NotionProperty) Label() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.Type)
}

type Destination struct {
	ID         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	WebhookURL string    `json:"webhookUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Label returns the name or the shortened webhook url for unnamed destinations.
func (d Destination) Label() string {
	if d.Name != "" {
		return d.Name
	}
	if len(d.WebhookURL) > 30 {
		return d.WebhookURL[:30] + "..."
	}
	return d.WebhookURL
}

type DestinationRequest struct {
	Name       string `json:"name,omitempty"`
	WebhookURL string `json:"webhookUrl"`
}

// IntegrationNames maps integration ids to their display names.
func IntegrationNames(integrations []NotionIntegration) map[string]string {
	names := make(map[string]string, len(integrations))
	for _, integration := range integrations {
		names[integration.ID] = integration.IntegrationName
	}
	return names
}

// DestinationLabels maps destination ids to their labels.
func DestinationLabels(destinations []Destination) map[string]string {
	labels := make(map[string]string, len(destinations))
	for _, destination := range destinations {
		labels[destination.ID] = destination.Label()
	}
	return labels
}

var ErrInvalidCondition = errors.New("condition must have the form property:operator:value")

// ParseCondition parses a condition written as property:operator:value.
// The value may contain colons, the property is an id or a name.
func ParseCondition(s string) (property string, operator Operator, value string, err error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || strings.TrimSpace(parts[0]) == "" || parts[2] == "" {
		return "", "", "", ErrInvalidCondition
	}
	operator = Operator(strings.ToLower(strings.TrimSpace(parts[1])))
	if !operator.Valid() {
		return "", "", "", fmt.Errorf("unknown operator %q, must be one of: equals, not_equals, contains, not_contains", parts[1])
	}
	return strings.TrimSpace(parts[0]), operator, parts[2], nil
}

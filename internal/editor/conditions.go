package editor

import (
	"slices"
	"strconv"
	"strings"

	"github.com/notifier-app/notifier/internal/flags"
	"github.com/notifier-app/notifier/notifier"
)

// Choice is one entry of a selector.
type Choice struct {
	Label string
	Value string
}

func (e *Editor) IntegrationChoices() []Choice {
	integrations := e.integrations.Data()
	choices := make([]Choice, 0, len(integrations))
	for _, integration := range integrations {
		choices = append(choices, Choice{Label: integration.IntegrationName, Value: integration.ID})
	}
	return choices
}

func (e *Editor) DatabaseChoices() []Choice {
	databases := e.databases.Data()
	choices := make([]Choice, 0, len(databases))
	for _, database := range databases {
		label := database.Name
		if label == "" {
			label = database.ID
		}
		choices = append(choices, Choice{Label: label, Value: database.ID})
	}
	return choices
}

// PropertyChoices offers exactly the loaded property set of the selected database.
func (e *Editor) PropertyChoices() []Choice {
	properties := e.properties.Data()
	choices := make([]Choice, 0, len(properties))
	for _, property := range properties {
		choices = append(choices, Choice{Label: property.Label(), Value: property.ID})
	}
	return choices
}

func (e *Editor) OperatorChoices() []Choice {
	choices := make([]Choice, 0, len(notifier.Operators))
	for _, operator := range notifier.Operators {
		choices = append(choices, Choice{Label: operator.Label(), Value: string(operator)})
	}
	return choices
}

func (e *Editor) DestinationChoices() []Choice {
	destinations := e.destinations.Data()
	choices := make([]Choice, 0, len(destinations))
	for _, destination := range destinations {
		choices = append(choices, Choice{Label: destination.Label(), Value: destination.ID})
	}
	return choices
}

// CanAddCondition reports whether the selected database has a loaded, non-empty property set.
func (e *Editor) CanAddCondition() bool {
	return e.ready &&
		e.draft.NotionDatabaseID != "" &&
		e.properties.Success() &&
		len(e.properties.Data()) > 0
}

func (e *Editor) AddCondition() error {
	if !e.CanAddCondition() {
		return ErrConditionsUnavailable
	}
	e.draft.Conditions = append(e.draft.Conditions, notifier.Condition{})
	e.dirty = flags.Add(e.dirty, FieldConditions)
	return nil
}

func (e *Editor) RemoveCondition(i int) error {
	if i < 0 || i >= len(e.draft.Conditions) {
		return ErrConditionIndex
	}
	e.draft.Conditions = slices.Delete(e.draft.Conditions, i, i+1)
	e.dirty = flags.Add(e.dirty, FieldConditions)
	return nil
}

func (e *Editor) SetConditionProperty(i int, propertyID string) error {
	return e.editCondition(i, func(c *notifier.Condition) {
		c.PropertyID = propertyID
	})
}

func (e *Editor) SetConditionOperator(i int, operator notifier.Operator) error {
	return e.editCondition(i, func(c *notifier.Condition) {
		c.Operator = operator
	})
}

func (e *Editor) SetConditionValue(i int, value string) error {
	return e.editCondition(i, func(c *notifier.Condition) {
		c.Value = value
	})
}

func (e *Editor) editCondition(i int, f func(c *notifier.Condition)) error {
	if !e.ready {
		return ErrNotReady
	}
	if i < 0 || i >= len(e.draft.Conditions) {
		return ErrConditionIndex
	}
	f(&e.draft.Conditions[i])
	e.dirty = flags.Add(e.dirty, FieldConditions)
	return nil
}

func ConditionPath(i int, field string) string {
	return "conditions." + strconv.Itoa(i) + "." + field
}

const ConditionsRootPath = "conditions.root"

// Validate returns notifier.ValidationErrors keyed by field path, or nil if the draft can be submitted.
func (e *Editor) Validate() error {
	errs := notifier.ValidationErrors{}
	if strings.TrimSpace(e.draft.Name) == "" {
		errs["name"] = "Template name is required."
	}
	if e.draft.UserNotionIntegrationID == "" {
		errs["userNotionIntegrationId"] = "Notion integration is required."
	}
	if e.draft.NotionDatabaseID == "" {
		errs["notionDatabaseId"] = "Notion database is required."
	}
	if strings.TrimSpace(e.draft.Body) == "" {
		errs["body"] = "Message body is required."
	}
	if e.draft.DestinationID == "" {
		errs["destinationId"] = "Destination is required."
	}

	if len(e.draft.Conditions) > 0 && e.draft.NotionDatabaseID == "" {
		errs[ConditionsRootPath] = "Conditions need a Notion database."
	}

	// membership can only be checked against a loaded property set
	var known map[string]struct{}
	if e.properties.Success() {
		known = make(map[string]struct{}, len(e.properties.Data()))
		for _, property := range e.properties.Data() {
			known[property.ID] = struct{}{}
		}
	}
	for i, condition := range e.draft.Conditions {
		if condition.PropertyID == "" {
			errs[ConditionPath(i, "propertyId")] = "Property is required."
		} else if known != nil {
			if _, ok := known[condition.PropertyID]; !ok {
				errs[ConditionPath(i, "propertyId")] = "Property does not belong to the selected database."
			}
		}
		if condition.Operator == "" {
			errs[ConditionPath(i, "operator")] = "Operator is required."
		} else if !condition.Operator.Valid() {
			errs[ConditionPath(i, "operator")] = "Operator is not supported."
		}
		if condition.Value == "" {
			errs[ConditionPath(i, "value")] = "Value is required."
		}
	}
	return errs.Err()
}

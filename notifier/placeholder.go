package notifier

import (
	"regexp"
	"slices"
	"strings"
)

const PageURLPlaceholder = "_pageUrl"

var placeholderRegex = regexp.MustCompile(`\{([^{}]+)\}`)

// Placeholders returns the distinct placeholder names used in body in order of appearance.
func Placeholders(body string) []string {
	var names []string
	for _, match := range placeholderRegex.FindAllStringSubmatch(body, -1) {
		name := strings.TrimSpace(match[1])
		if name == "" || slices.Contains(names, name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

// PlaceholderSuggestions lists every placeholder a body can use for the given properties.
func PlaceholderSuggestions(properties []NotionProperty) []string {
	suggestions := make([]string, 0, len(properties)+1)
	for _, property := range properties {
		suggestions = append(suggestions, "{"+property.Name+"}")
	}
	return append(suggestions, "{"+PageURLPlaceholder+"}")
}

// UnknownPlaceholders returns the placeholders in body that match neither a property name nor {_pageUrl}.
func UnknownPlaceholders(body string, properties []NotionProperty) []string {
	var unknown []string
	for _, name := range Placeholders(body) {
		if name == PageURLPlaceholder {
			continue
		}
		if slices.ContainsFunc(properties, func(p NotionProperty) bool { return p.Name == name }) {
			continue
		}
		unknown = append(unknown, name)
	}
	return unknown
}

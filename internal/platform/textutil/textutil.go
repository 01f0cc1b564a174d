package textutil

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	titleCaser   = cases.Title(language.English)
)

// Clean strips all HTML markup from free-form user text and collapses
// surrounding whitespace. Customisation text printed on physical products
// passes through here before persistence.
func Clean(value string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(value))
}

// CleanMap applies Clean to every value, dropping entries whose key or
// cleaned value is empty.
func CleanMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	result := make(map[string]string, len(values))
	for key, value := range values {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		cleaned := Clean(value)
		if cleaned == "" {
			continue
		}
		result[trimmedKey] = cleaned
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// TitleCase normalises upstream ALL-CAPS locality names into title case.
func TitleCase(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return titleCaser.String(strings.ToLower(value))
}

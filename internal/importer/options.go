package importer

import (
	"encoding/json"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/apperr"
)

// CSVOptions control one CSV run. CategoryMapping maps a category name from the file to an
// existing category id.
type CSVOptions struct {
	ValidateOnly    bool              `json:"validateOnly"`
	UpdateExisting  bool              `json:"updateExisting"`
	SkipInvalid     bool              `json:"skipInvalid"`
	CategoryMapping map[string]string `json:"categoryMapping,omitempty"`
}

type WXROptions struct {
	DefaultCurrency      string            `json:"defaultCurrency"`
	UpdateExisting       bool              `json:"updateExisting"`
	SkipInvalid          bool              `json:"skipInvalid"`
	AutoCreateCategories bool              `json:"autoCreateCategories"`
	CreateAllVariants    bool              `json:"createAllVariants"`
	CategoryMapping      map[string]string `json:"categoryMapping,omitempty"`
}

// ParseFlag accepts only true, false, 1, 0 or an empty value (false).
func ParseFlag(name, raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1":
		return true, nil
	case "false", "0", "":
		return false, nil
	}
	return false, apperr.Validation("invalid_option", name+" must be true or false")
}

// ParseCategoryMapping decodes a JSON object of category name to id. Empty input yields nil.
func ParseCategoryMapping(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, apperr.Validation("invalid_option", "categoryMapping must be a JSON object of strings")
	}
	return m, nil
}

package compliance

import (
	"fmt"
	"sort"
	"strings"
)

// ValidateRunCompliance checks the run_compliance parameters: categories are
// required when trigger_full is false, and every category must be one of
// ValidCategories (case-insensitive).
func ValidateRunCompliance(triggerFull bool, categories []string) error {
	if !triggerFull && len(categories) == 0 {
		return &ValidationError{
			Reason: fmt.Sprintf("categories is a required parameter when trigger_full is set to false. Valid categories are %v", ValidCategories),
		}
	}
	for _, category := range categories {
		if !validCategory(category) {
			return &ValidationError{
				Reason: fmt.Sprintf("invalid category %q provided. Valid categories are %v", category, ValidCategories),
			}
		}
	}
	return nil
}

func validCategory(category string) bool {
	upper := strings.ToUpper(category)
	for _, valid := range ValidCategories {
		if upper == valid {
			return true
		}
	}
	return false
}

// ExpandCategories normalizes categories to upper case and expands INTENT
// into its fixed set of finer-grained compliance types. Duplicates are
// removed and the result is sorted for a stable wire encoding.
func ExpandCategories(categories []string) []string {
	set := make(map[string]struct{}, len(categories))
	for _, category := range categories {
		upper := strings.ToUpper(category)
		if upper == CategoryIntent {
			for _, expanded := range intentExpansion {
				set[expanded] = struct{}{}
			}
			continue
		}
		set[upper] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for category := range set {
		out = append(out, category)
	}
	sort.Strings(out)
	return out
}

// QuoteJoin renders categories in the control plane's compliance-detail query
// encoding: each value single-quoted, comma-joined, e.g. `'IMAGE', 'PSIRT'`.
func QuoteJoin(categories []string) string {
	if len(categories) == 0 {
		return ""
	}
	return "'" + strings.Join(categories, "', '") + "'"
}

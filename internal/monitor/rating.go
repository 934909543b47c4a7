package monitor

import (
	"strconv"

	"github.com/tracyhatemice/mailsentinel/internal/config"
)

// RatingTable maps an age in days to a category label via ordered
// thresholds. It is an immutable value built once from configuration.
type RatingTable struct {
	rules []config.Rating
}

// NewRatingTable builds a table from rules ordered ascending by threshold.
func NewRatingTable(rules []config.Rating) RatingTable {
	copied := make([]config.Rating, len(rules))
	copy(copied, rules)
	return RatingTable{rules: copied}
}

// Classify returns the label of the first rule whose threshold covers the
// age, truncated to whole days. Past the last rule, or with no rules at all,
// the truncated day count itself is the label. Classify never fails.
func (t RatingTable) Classify(ageDays float64) string {
	days := int(ageDays)
	for _, rule := range t.rules {
		if days <= rule.MaxAgeDays {
			return rule.Label
		}
	}
	return strconv.Itoa(days)
}

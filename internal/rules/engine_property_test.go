package rules

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/mixelka/mailnotify/pkg/models"
)

// FirstMatch picks the earliest enabled matching rule and evaluates nothing after it.
func TestProperty_FirstMatchOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	msg := &models.Message{Subject: "hit"}

	properties.Property("earliest enabled match wins", prop.ForAll(
		func(enabled, matching []bool) bool {
			n := min(len(enabled), len(matching))

			ruleSet := make([]*models.Rule, 0, n)
			want := -1
			for i := 0; i < n; i++ {
				pattern := "miss"
				if matching[i] {
					pattern = "hit"
				}
				ruleSet = append(ruleSet, &models.Rule{
					ID:         int64(i + 1),
					Position:   i,
					Enabled:    enabled[i],
					Conditions: []models.RuleCondition{cond(models.FieldSubject, models.MatchContains, pattern)},
				})
				if want < 0 && enabled[i] && matching[i] {
					want = i
				}
			}

			e := newTestEngine()
			evaluated := 0
			e.match = func(r *models.Rule, m *models.Message) bool {
				evaluated++
				return e.Matches(r, m)
			}

			got := e.FirstMatch(ruleSet, 1, msg)
			if want < 0 {
				return got == nil
			}
			if got == nil || got.ID != int64(want+1) {
				return false
			}
			enabledUpTo := 0
			for i := 0; i <= want; i++ {
				if enabled[i] {
					enabledUpTo++
				}
			}
			return evaluated == enabledUpTo
		},
		gen.SliceOf(gen.Bool()),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}

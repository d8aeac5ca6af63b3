package rules_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"tessera/internal/domain"
	"tessera/internal/rules"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func makeRule(target *string, cfg rules.Config, active bool) domain.ExtractionRule {
	raw, _ := json.Marshal(cfg)
	return domain.ExtractionRule{
		ID:          uuid.New(),
		ProjectID:   uuid.New(),
		TargetField: target,
		RuleContent: "pattern rule",
		RuleConfig:  raw,
		IsActive:    active,
	}
}

func TestEngine_CapsConfidenceOnMatch(t *testing.T) {
	eng := rules.NewEngine([]domain.ExtractionRule{
		makeRule(strPtr("Quantity"), rules.Config{Pattern: `^0$`, MaxConfidence: floatPtr(40)}, true),
	})
	assert.Equal(t, 1, eng.Len())

	out := eng.Apply("Quantity", strPtr("0"), 90)
	assert.Equal(t, 40.0, out.Confidence)
	assert.False(t, out.Invalid)

	// No match leaves the confidence alone
	out = eng.Apply("Quantity", strPtr("12"), 90)
	assert.Equal(t, 90.0, out.Confidence)
}

func TestEngine_NeverRaisesConfidence(t *testing.T) {
	eng := rules.NewEngine([]domain.ExtractionRule{
		makeRule(nil, rules.Config{Pattern: `.`, MaxConfidence: floatPtr(95)}, true),
	})
	out := eng.Apply("AnyField", strPtr("value"), 60)
	assert.Equal(t, 60.0, out.Confidence)
}

func TestEngine_ForceInvalid(t *testing.T) {
	eng := rules.NewEngine([]domain.ExtractionRule{
		makeRule(strPtr("Date"), rules.Config{Pattern: `^\d{2}/\d{2}$`, ForceInvalid: true}, true),
	})
	out := eng.Apply("Date", strPtr("12/31"), 99)
	assert.True(t, out.Invalid)
	assert.Equal(t, 99.0, out.Confidence)
}

func TestEngine_LowestConfidenceWinsAcrossRules(t *testing.T) {
	eng := rules.NewEngine([]domain.ExtractionRule{
		makeRule(nil, rules.Config{Pattern: `foo`, MaxConfidence: floatPtr(50)}, true),
		makeRule(nil, rules.Config{Pattern: `foo`, MaxConfidence: floatPtr(30)}, true),
		makeRule(nil, rules.Config{Pattern: `foo`, MaxConfidence: floatPtr(70)}, true),
	})
	out := eng.Apply("Notes", strPtr("foobar"), 90)
	assert.Equal(t, 30.0, out.Confidence)
}

func TestEngine_TargetFieldFilter(t *testing.T) {
	eng := rules.NewEngine([]domain.ExtractionRule{
		makeRule(strPtr("Amount"), rules.Config{Pattern: `-`, ForceInvalid: true}, true),
	})
	out := eng.Apply("Description", strPtr("multi-part"), 80)
	assert.False(t, out.Invalid)

	out = eng.Apply("Amount", strPtr("-5"), 80)
	assert.True(t, out.Invalid)
}

func TestEngine_SkipsInactiveAndMalformedRules(t *testing.T) {
	bad := domain.ExtractionRule{
		ID:          uuid.New(),
		RuleContent: "broken",
		RuleConfig:  json.RawMessage(`{"pattern": `),
		IsActive:    true,
	}
	badPattern := makeRule(nil, rules.Config{Pattern: `[`}, true)
	inactive := makeRule(nil, rules.Config{Pattern: `.`, ForceInvalid: true}, false)

	eng := rules.NewEngine([]domain.ExtractionRule{bad, badPattern, inactive})
	assert.Equal(t, 0, eng.Len())

	out := eng.Apply("Field", strPtr("value"), 88)
	assert.Equal(t, 88.0, out.Confidence)
	assert.False(t, out.Invalid)
}

func TestEngine_FreeTextOnlyRulesAreNotEvaluated(t *testing.T) {
	// Rules without a pattern are the worker's concern.
	rule := domain.ExtractionRule{
		ID:          uuid.New(),
		RuleContent: "prefer values from the header section",
		IsActive:    true,
	}
	eng := rules.NewEngine([]domain.ExtractionRule{rule})
	assert.Equal(t, 0, eng.Len())
}

func TestEngine_NilAndEmptyValuesNeverMatch(t *testing.T) {
	eng := rules.NewEngine([]domain.ExtractionRule{
		makeRule(nil, rules.Config{Pattern: `.*`, ForceInvalid: true}, true),
	})
	out := eng.Apply("Field", nil, 70)
	assert.False(t, out.Invalid)

	out = eng.Apply("Field", strPtr(""), 70)
	assert.False(t, out.Invalid)
}

func TestCheckPattern(t *testing.T) {
	assert.NoError(t, rules.CheckPattern(`^\d+$`))
	assert.Error(t, rules.CheckPattern(`[unclosed`))
}

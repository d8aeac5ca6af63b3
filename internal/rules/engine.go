package rules

import (
	"encoding/json"
	"log"
	"regexp"

	"tessera/internal/domain"
)

// Config is the pattern evaluator's settings carried in a rule's
// rule_config column. Pattern is matched against the candidate value;
// on a match MaxConfidence caps the cell's confidence and ForceInvalid
// forces the validation status to invalid.
type Config struct {
	Pattern       string   `json:"pattern"`
	MaxConfidence *float64 `json:"max_confidence"`
	ForceInvalid  bool     `json:"force_invalid"`
}

type compiledRule struct {
	id            string
	targetField   *string
	re            *regexp.Regexp
	maxConfidence *float64
	forceInvalid  bool
}

// Outcome is the result of evaluating all matching rules against one
// candidate cell write.
type Outcome struct {
	Confidence float64
	Invalid    bool
}

// Engine evaluates a project's active rules at cell-write time.
// Evaluation is pure and order-independent: when several rules match,
// the lowest resulting confidence wins.
type Engine struct {
	rules []compiledRule
}

// NewEngine compiles the given rules. Inactive rules and rules whose
// pattern does not compile are skipped (the latter is logged).
func NewEngine(ruleRows []domain.ExtractionRule) *Engine {
	e := &Engine{}
	for i := range ruleRows {
		rule := &ruleRows[i]
		if !rule.IsActive {
			continue
		}
		var cfg Config
		if len(rule.RuleConfig) > 0 {
			if err := json.Unmarshal(rule.RuleConfig, &cfg); err != nil {
				log.Printf("rules.Engine: rule %s has malformed config, skipping: %v", rule.ID, err)
				continue
			}
		}
		if cfg.Pattern == "" {
			// Free-text-only rules are interpreted by the worker, not here.
			continue
		}
		re, err := regexp.Compile(cfg.Pattern)
		if err != nil {
			log.Printf("rules.Engine: rule %s has invalid pattern %q, skipping: %v", rule.ID, cfg.Pattern, err)
			continue
		}
		e.rules = append(e.rules, compiledRule{
			id:            rule.ID.String(),
			targetField:   rule.TargetField,
			re:            re,
			maxConfidence: cfg.MaxConfidence,
			forceInvalid:  cfg.ForceInvalid,
		})
	}
	return e
}

// CheckPattern reports whether a rule pattern compiles.
func CheckPattern(pattern string) error {
	_, err := regexp.Compile(pattern)
	return err
}

// Len returns the number of compiled rules.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Apply evaluates all rules matching fieldName against value and returns
// the adjusted confidence and whether any rule forces the cell invalid.
// A nil or empty value is never matched.
func (e *Engine) Apply(fieldName string, value *string, confidence float64) Outcome {
	out := Outcome{Confidence: confidence}
	if value == nil || *value == "" {
		return out
	}
	for i := range e.rules {
		rule := &e.rules[i]
		if rule.targetField != nil && *rule.targetField != fieldName {
			continue
		}
		if !rule.re.MatchString(*value) {
			continue
		}
		if rule.maxConfidence != nil && *rule.maxConfidence < out.Confidence {
			out.Confidence = *rule.maxConfidence
		}
		if rule.forceInvalid {
			out.Invalid = true
		}
	}
	return out
}

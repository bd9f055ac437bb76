package categorize

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// KeywordRule ties a category name to the keywords that select it.
type KeywordRule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// RuleSet is the declarative rule table. Rule order is significant.
type RuleSet struct {
	IncomeCategory  string        `yaml:"income_category"`
	FallbackExpense string        `yaml:"fallback_expense"`
	FallbackIncome  string        `yaml:"fallback_income"`
	IncomeKeywords  []KeywordRule `yaml:"income_keywords"`
	ExpenseRules    []KeywordRule `yaml:"expense_rules"`
}

func DefaultRules() (*RuleSet, error) {
	return ParseRules(defaultRulesYAML)
}

// LoadRules reads a rule file, or the embedded defaults when path is empty.
func LoadRules(path string) (*RuleSet, error) {
	if path == "" {
		return DefaultRules()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category rules %s: %w", path, err)
	}
	return ParseRules(data)
}

func ParseRules(data []byte) (*RuleSet, error) {
	var rules RuleSet
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing category rules: %w", err)
	}
	if err := rules.normalize(); err != nil {
		return nil, err
	}
	return &rules, nil
}

func (r *RuleSet) normalize() error {
	if r.IncomeCategory == "" || r.FallbackExpense == "" || r.FallbackIncome == "" {
		return fmt.Errorf("category rules: income_category, fallback_expense and fallback_income are required")
	}
	for _, group := range [][]KeywordRule{r.IncomeKeywords, r.ExpenseRules} {
		for i := range group {
			if group[i].Category == "" {
				return fmt.Errorf("category rules: rule %d has no category", i+1)
			}
			if len(group[i].Keywords) == 0 {
				return fmt.Errorf("category rules: %q has no keywords", group[i].Category)
			}
			for k, keyword := range group[i].Keywords {
				group[i].Keywords[k] = strings.ToLower(strings.TrimSpace(keyword))
			}
		}
	}
	return nil
}

package categorize

import (
	"strings"

	"github.com/google/uuid"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
)

// Confidence levels shown to users; anything below 0.7 is presented as low confidence.
const (
	ConfidenceIncome        = 0.8
	ConfidenceIncomeKeyword = 0.75
	ConfidenceKeywordBase   = 0.7
	ConfidenceKeywordMax    = 0.85
	ConfidenceFallback      = 0.3
)

type Result struct {
	CategoryID   *uuid.UUID
	CategoryName string
	Confidence   float64
}

type Categorizer struct {
	rules *RuleSet
}

func New(rules *RuleSet) *Categorizer {
	return &Categorizer{rules: rules}
}

// Categorize picks a category from the owner's set. Rules naming a category the owner does
// not have are skipped. A zero Result means not even the fallback category exists.
func (c *Categorizer) Categorize(transactionType domain.TransactionType, description, merchant string, categories []domain.Category) Result {
	text := strings.ToLower(description + " " + merchant)

	if transactionType == domain.TransactionTypeIncome {
		if category := find(categories, c.rules.IncomeCategory, domain.TransactionTypeIncome); category != nil {
			return result(category, ConfidenceIncome)
		}
		return c.fallback(transactionType, categories)
	}

	for _, rule := range c.rules.IncomeKeywords {
		if countMatches(text, rule.Keywords) == 0 {
			continue
		}
		if category := find(categories, rule.Category, domain.TransactionTypeIncome); category != nil {
			return result(category, ConfidenceIncomeKeyword)
		}
	}

	var best *domain.Category
	bestScore := 0.0
	for _, rule := range c.rules.ExpenseRules {
		matches := countMatches(text, rule.Keywords)
		if matches == 0 {
			continue
		}
		category := find(categories, rule.Category, domain.TransactionTypeExpense)
		if category == nil {
			continue
		}
		score := float64(matches) / float64(len(rule.Keywords))
		// strictly greater keeps the earlier rule on ties
		if score > bestScore {
			best, bestScore = category, score
		}
	}
	if best != nil {
		confidence := ConfidenceKeywordBase + bestScore*0.2
		if confidence > ConfidenceKeywordMax {
			confidence = ConfidenceKeywordMax
		}
		return result(best, confidence)
	}

	return c.fallback(transactionType, categories)
}

func (c *Categorizer) fallback(transactionType domain.TransactionType, categories []domain.Category) Result {
	name := c.rules.FallbackExpense
	if transactionType == domain.TransactionTypeIncome {
		name = c.rules.FallbackIncome
	}
	if category := find(categories, name, transactionType); category != nil {
		return result(category, ConfidenceFallback)
	}
	return Result{}
}

func countMatches(text string, keywords []string) int {
	matches := 0
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			matches++
		}
	}
	return matches
}

// find returns the first category with the given name and type, in the order given.
func find(categories []domain.Category, name string, transactionType domain.TransactionType) *domain.Category {
	for i := range categories {
		if categories[i].Name == name && categories[i].Type == transactionType {
			return &categories[i]
		}
	}
	return nil
}

func result(category *domain.Category, confidence float64) Result {
	id := category.ID
	return Result{CategoryID: &id, CategoryName: category.Name, Confidence: confidence}
}

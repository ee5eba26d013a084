// Package texts supplies practice texts per category.
package texts

import (
	"errors"
	"fmt"

	"github.com/verte-zerg/keyboarding/internal/model"
)

// ErrUnknownCategory is returned for a category without a text pool.
var ErrUnknownCategory = errors.New("unknown category")

// Provider returns the text pool of a category.
type Provider interface {
	Texts(categoryID string) ([]string, error)
}

// Static is a Provider backed by in-memory pools.
type Static struct {
	pools map[string][]string
}

// NewStatic builds a provider from configured categories and the final
// assessment.
func NewStatic(categories []model.Category, assessment model.Assessment) *Static {
	pools := make(map[string][]string, len(categories)+1)
	for _, c := range categories {
		pools[c.ID] = append([]string(nil), c.Texts...)
	}
	if assessment.ID != "" {
		pools[assessment.ID] = append([]string(nil), assessment.Texts...)
	}
	return &Static{pools: pools}
}

// Texts implements Provider.
func (s *Static) Texts(categoryID string) ([]string, error) {
	pool, ok := s.pools[categoryID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, categoryID)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("category %s has no texts", categoryID)
	}
	return pool, nil
}

// Next picks the next text for a category, avoiding previous.
func Next(p Provider, picker *Picker, categoryID, previous string) (string, error) {
	pool, err := p.Texts(categoryID)
	if err != nil {
		return "", err
	}
	return picker.Pick(pool, previous), nil
}

package service

import (
	"encoding/json"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/chemcat/chemcat-cli/internal/domain/model"
	apperrors "github.com/chemcat/chemcat-cli/internal/errors"
)

// JMESPathEvaluator abstracts JMESPath operations for testability.
type JMESPathEvaluator interface {
	Validate(expr string) error
	Evaluate(expr string, data any) (any, error)
}

// jmespathLibEvaluator implements JMESPathEvaluator using go-jmespath.
type jmespathLibEvaluator struct{}

func (j jmespathLibEvaluator) Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := jmespath.Compile(expr)
	return err
}

func (j jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// SearchFilterOptions groups dependencies for SearchFilter.
type SearchFilterOptions struct {
	Evaluator JMESPathEvaluator
}

// SearchFilter refines fetched compound pages with a JMESPath expression,
// powering the advanced-search view. The expression is evaluated against
// each compound's JSON form; truthy results keep the compound.
type SearchFilter struct {
	jems JMESPathEvaluator
}

// NewSearchFilter constructs a SearchFilter.
func NewSearchFilter(opts SearchFilterOptions) *SearchFilter {
	jems := opts.Evaluator
	if jems == nil {
		jems = jmespathLibEvaluator{}
	}
	return &SearchFilter{jems: jems}
}

// Validate checks an expression without evaluating it. Empty expressions are
// valid and match everything.
func (f *SearchFilter) Validate(expr string) error {
	if err := f.jems.Validate(expr); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "Invalid search expression")
	}
	return nil
}

// Refine returns the compounds matching expr. An empty expression returns
// the page unchanged.
func (f *SearchFilter) Refine(page *model.CompoundPage, expr string) ([]model.Compound, error) {
	if page == nil {
		return nil, nil
	}
	if strings.TrimSpace(expr) == "" {
		return page.Results, nil
	}
	if err := f.Validate(expr); err != nil {
		return nil, err
	}

	matched := make([]model.Compound, 0, len(page.Results))
	for _, compound := range page.Results {
		// Round-trip to the generic JSON shape JMESPath operates on.
		data, err := json.Marshal(compound)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode compound")
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "decode compound")
		}

		result, err := f.jems.Evaluate(expr, generic)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "Search expression failed")
		}
		if truthy(result) {
			matched = append(matched, compound)
		}
	}
	return matched, nil
}

// truthy applies JMESPath truthiness: null, false, empty strings, and empty
// collections are false; everything else is true.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}

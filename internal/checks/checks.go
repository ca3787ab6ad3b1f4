// Package checks runs the catalog's declarative data-quality
// assertions against materialized models. Every check compiles to a
// violation-count query; zero violations passes.
package checks

import (
	"context"
	"fmt"
	"strings"

	"martforge/internal/model"
	"martforge/pkg/errors"
	"martforge/pkg/models"
)

// Querier is the slice of the warehouse service the checker needs.
type Querier interface {
	QueryCount(ctx context.Context, query string) (int64, error)
}

// Result is the outcome of one check.
type Result struct {
	Model      string
	Name       string
	Passed     bool
	Skipped    bool
	Violations int64
	Error      error
}

// Run executes every check declared on the given models. Check
// failures are reported in the results; the error return covers
// query execution problems and the final aggregate failure.
func Run(ctx context.Context, q Querier, catalog []model.Model, cfg models.ChecksConfig) ([]Result, error) {
	skip := make(map[string]bool, len(cfg.Skip))
	for _, name := range cfg.Skip {
		skip[name] = true
	}

	var results []Result
	failed := 0
	for i := range catalog {
		m := &catalog[i]
		for _, c := range m.Checks {
			name := CheckName(m.Name, c)
			if skip[name] {
				results = append(results, Result{Model: m.Name, Name: name, Skipped: true})
				continue
			}

			query, err := buildQuery(m.Name, c)
			if err != nil {
				return results, err
			}

			violations, err := q.QueryCount(ctx, query)
			if err != nil {
				results = append(results, Result{Model: m.Name, Name: name, Error: err})
				failed++
				continue
			}

			results = append(results, Result{
				Model:      m.Name,
				Name:       name,
				Passed:     violations == 0,
				Violations: violations,
			})
			if violations > 0 {
				failed++
			}
		}
	}

	if failed > 0 {
		return results, errors.New(errors.ErrCodeCheckFailed,
			fmt.Sprintf("%d of %d checks failed", failed, len(results))).
			WithSuggestions("Inspect the failing models, or skip known issues via checks.skip")
	}
	return results, nil
}

// CheckName is the stable identity used in the checks.skip list:
// model.type.column.
func CheckName(modelName string, c model.Check) string {
	col := c.Column
	if col == "" {
		col = "all"
	}
	return fmt.Sprintf("%s.%s.%s", modelName, c.Type, col)
}

func buildQuery(modelName string, c model.Check) (string, error) {
	var predicate string
	switch c.Type {
	case "not_null":
		predicate = fmt.Sprintf("%s IS NULL", c.Column)
	case "accepted_values":
		quoted := make([]string, len(c.Values))
		for i, v := range c.Values {
			quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
		}
		predicate = fmt.Sprintf("%s IS NOT NULL AND %s NOT IN (%s)",
			c.Column, c.Column, strings.Join(quoted, ", "))
	case "non_negative":
		predicate = fmt.Sprintf("%s < 0", c.Column)
	case "bounded":
		predicate = fmt.Sprintf("%s IS NOT NULL AND (%s < %v OR %s > %v)",
			c.Column, c.Column, c.Min, c.Column, c.Max)
	case "expression":
		if c.Expression == "" {
			return "", errors.New(errors.ErrCodeModelInvalid,
				fmt.Sprintf("model %s: expression check without an expression", modelName))
		}
		predicate = fmt.Sprintf("NOT (%s)", c.Expression)
	default:
		return "", errors.New(errors.ErrCodeModelInvalid,
			fmt.Sprintf("model %s: unknown check type %q", modelName, c.Type))
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", modelName, predicate), nil
}

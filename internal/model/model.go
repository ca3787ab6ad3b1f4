// Package model holds the mart's transformation catalog: each model is
// a named SQL statement plus the metadata the runner needs to order,
// select, and materialize it.
package model

import (
	"bytes"
	"fmt"
	"sort"
	"text/template"

	"martforge/pkg/errors"
	"martforge/pkg/models"
)

// Materialization controls how a model's output is persisted.
type Materialization string

const (
	MaterializationView  Materialization = "view"
	MaterializationTable Materialization = "table"
)

// Valid reports whether m is a known materialization mode.
func (m Materialization) Valid() bool {
	return m == MaterializationView || m == MaterializationTable
}

// Check is a declarative data-quality assertion against a model's
// materialized output.
type Check struct {
	// Type is one of "not_null", "accepted_values", "non_negative",
	// "bounded" or "expression".
	Type   string
	Column string
	// Values lists the accepted values for accepted_values checks.
	Values []string
	// Min/Max bound the column for bounded checks.
	Min float64
	Max float64
	// Expression is a boolean SQL predicate that must hold for every
	// row (expression checks count the violations).
	Expression string
}

// Model is one transformation unit: the SQL text and the metadata that
// places it in the dependency graph.
type Model struct {
	// Name is the model's identity and its materialized object name.
	Name        string
	Description string
	// Materialized defines how the model is stored: view or table.
	Materialized Materialization
	// Tags are metadata labels for selective runs.
	Tags []string
	// Refs name the upstream models this one reads from.
	Refs []string
	// Sources name the raw warehouse tables this one reads from.
	Sources []string
	// SQL is the statement body, possibly containing template
	// variables. It excludes the CREATE wrapper.
	SQL string
	// Checks are the model's data-quality assertions.
	Checks []Check
}

// HasTag reports whether the model carries the given tag.
func (m *Model) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Render substitutes project variables into the model's SQL body.
func (m *Model) Render(vars models.Vars) (string, error) {
	tmpl, err := template.New(m.Name).Option("missingkey=error").Parse(m.SQL)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeModelRender,
			fmt.Sprintf("failed to parse template for model %s", m.Name))
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeModelRender,
			fmt.Sprintf("failed to render model %s", m.Name))
	}
	return buf.String(), nil
}

// DDL renders the model and wraps it in the CREATE statement for its
// materialization mode.
func (m *Model) DDL(vars models.Vars) (string, error) {
	body, err := m.Render(vars)
	if err != nil {
		return "", err
	}
	switch m.Materialized {
	case MaterializationView:
		return fmt.Sprintf("CREATE OR REPLACE VIEW %s AS\n%s", m.Name, body), nil
	case MaterializationTable:
		return fmt.Sprintf("CREATE OR REPLACE TABLE %s AS\n%s", m.Name, body), nil
	default:
		return "", errors.New(errors.ErrCodeModelInvalid,
			fmt.Sprintf("model %s has unknown materialization %q", m.Name, m.Materialized))
	}
}

// Validate checks a set of models for structural problems: duplicate
// names, unknown refs and invalid materializations.
func Validate(catalog []Model) error {
	byName := make(map[string]struct{}, len(catalog))
	for i := range catalog {
		m := &catalog[i]
		if m.Name == "" {
			return errors.New(errors.ErrCodeModelInvalid, "model with empty name")
		}
		if _, dup := byName[m.Name]; dup {
			return errors.New(errors.ErrCodeModelDuplicate,
				fmt.Sprintf("duplicate model name %q", m.Name))
		}
		byName[m.Name] = struct{}{}
		if !m.Materialized.Valid() {
			return errors.New(errors.ErrCodeModelInvalid,
				fmt.Sprintf("model %s: unknown materialization %q", m.Name, m.Materialized))
		}
		if m.SQL == "" {
			return errors.New(errors.ErrCodeModelInvalid,
				fmt.Sprintf("model %s has no SQL body", m.Name))
		}
	}
	for i := range catalog {
		m := &catalog[i]
		for _, ref := range m.Refs {
			if _, ok := byName[ref]; !ok {
				return errors.New(errors.ErrCodeUnknownRef,
					fmt.Sprintf("model %s references unknown model %q", m.Name, ref)).
					WithSuggestions(fmt.Sprintf("Declare a model named %q or remove the ref", ref))
			}
		}
	}
	return nil
}

// Names returns the sorted names of the given models.
func Names(catalog []Model) []string {
	names := make([]string, len(catalog))
	for i := range catalog {
		names[i] = catalog[i].Name
	}
	sort.Strings(names)
	return names
}

// Find returns the model with the given name, or nil.
func Find(catalog []Model, name string) *Model {
	for i := range catalog {
		if catalog[i].Name == name {
			return &catalog[i]
		}
	}
	return nil
}

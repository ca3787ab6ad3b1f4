package model

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"martforge/pkg/errors"
)

// Pragma comments recognized at the top of a .sql model file. Parsing
// stops at the first line that is neither blank nor a comment.
//
//	-- materialized: table
//	-- tags: mart, sessions
//	-- refs: stg_events
//	-- sources: raw_events
//	-- description: free text
const (
	pragmaMaterialized = "materialized"
	pragmaTags         = "tags"
	pragmaRefs         = "refs"
	pragmaSources      = "sources"
	pragmaDescription  = "description"
)

// LoadDir reads project-local model files from dir and merges them
// over the built-in catalog: a file whose name matches a built-in model
// replaces it, any other file adds a new model. A missing directory
// yields the built-in catalog unchanged.
func LoadDir(dir string) ([]Model, error) {
	catalog := Catalog()
	if dir == "" {
		return catalog, Validate(catalog)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return catalog, Validate(catalog)
	}

	var loaded []Model
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".sql") {
			return nil
		}
		m, err := parseFile(path)
		if err != nil {
			return err
		}
		loaded = append(loaded, m)
		return nil
	})
	if err != nil {
		if _, ok := err.(*errors.AppError); ok {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeModelInvalid,
			fmt.Sprintf("failed to read models directory %s", dir))
	}

	for _, m := range loaded {
		if existing := Find(catalog, m.Name); existing != nil {
			*existing = m
		} else {
			catalog = append(catalog, m)
		}
	}
	return catalog, Validate(catalog)
}

func parseFile(path string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Model{}, errors.Wrap(err, errors.ErrCodeModelInvalid,
			fmt.Sprintf("failed to read model file %s", path))
	}

	m := Model{
		Name:         strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Materialized: MaterializationView,
	}

	lines := strings.Split(string(data), "\n")
	body := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "--") {
			body = i
			break
		}
		body = i + 1
		key, value, ok := splitPragma(trimmed)
		if !ok {
			continue
		}
		switch key {
		case pragmaMaterialized:
			m.Materialized = Materialization(value)
		case pragmaTags:
			m.Tags = splitList(value)
		case pragmaRefs:
			m.Refs = splitList(value)
		case pragmaSources:
			m.Sources = splitList(value)
		case pragmaDescription:
			m.Description = value
		}
	}

	m.SQL = strings.TrimSpace(strings.Join(lines[body:], "\n"))
	if m.SQL == "" {
		return Model{}, errors.New(errors.ErrCodeModelInvalid,
			fmt.Sprintf("model file %s has no SQL body", path))
	}
	return m, nil
}

func splitPragma(line string) (key, value string, ok bool) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "--"))
	idx := strings.Index(rest, ":")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(rest[:idx]), strings.TrimSpace(rest[idx+1:]), true
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

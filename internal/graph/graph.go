// Package graph orders the model catalog for execution: dependencies
// before dependents, ties broken by name so runs are deterministic.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"martforge/internal/model"
	"martforge/pkg/errors"
)

// Graph is the dependency graph over a validated model catalog.
type Graph struct {
	models map[string]*model.Model
	// edges maps a model to the models that depend on it.
	downstream map[string][]string
	order      []string
}

// Build constructs the graph and computes the execution order. It
// fails on dependency cycles, naming the members of one cycle.
func Build(catalog []model.Model) (*Graph, error) {
	g := &Graph{
		models:     make(map[string]*model.Model, len(catalog)),
		downstream: make(map[string][]string),
	}
	for i := range catalog {
		g.models[catalog[i].Name] = &catalog[i]
	}
	for i := range catalog {
		for _, ref := range catalog[i].Refs {
			g.downstream[ref] = append(g.downstream[ref], catalog[i].Name)
		}
	}

	order, err := g.topoSort()
	if err != nil {
		return nil, err
	}
	g.order = order
	return g, nil
}

// Order returns every model name in execution order.
func (g *Graph) Order() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Model returns the named model, or nil.
func (g *Graph) Model(name string) *model.Model {
	return g.models[name]
}

// topoSort is Kahn's algorithm with a sorted ready set: among models
// whose dependencies are all satisfied, the lexicographically smallest
// name runs first.
func (g *Graph) topoSort() ([]string, error) {
	indegree := make(map[string]int, len(g.models))
	for name, m := range g.models {
		indegree[name] += 0
		for range m.Refs {
			indegree[name]++
		}
	}

	var ready []string
	for name, deg := range indegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.models))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		released := false
		for _, dep := range g.downstream[name] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
				released = true
			}
		}
		if released {
			sort.Strings(ready)
		}
	}

	if len(order) != len(g.models) {
		var stuck []string
		for name, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		cycle := g.traceCycle(stuck)
		return nil, errors.New(errors.ErrCodeDependencyCycle,
			fmt.Sprintf("dependency cycle involving %s", strings.Join(cycle, " -> "))).
			WithSuggestions("Remove one of the refs to break the cycle")
	}
	return order, nil
}

// traceCycle walks refs from the first stuck model until a name
// repeats, returning the loop it found.
func (g *Graph) traceCycle(stuck []string) []string {
	if len(stuck) == 0 {
		return nil
	}
	stuckSet := make(map[string]bool, len(stuck))
	for _, s := range stuck {
		stuckSet[s] = true
	}

	seen := make(map[string]int)
	var path []string
	cur := stuck[0]
	for {
		if at, ok := seen[cur]; ok {
			return append(path[at:], cur)
		}
		seen[cur] = len(path)
		path = append(path, cur)

		next := ""
		for _, ref := range g.models[cur].Refs {
			if stuckSet[ref] {
				next = ref
				break
			}
		}
		if next == "" {
			return path
		}
		cur = next
	}
}

// Select resolves a run selection to an ordered subset of the graph.
// Names select the model plus its full upstream closure; tags select
// every tagged model plus upstream closure. Empty selectors mean the
// whole graph.
func (g *Graph) Select(names, tags []string) ([]string, error) {
	if len(names) == 0 && len(tags) == 0 {
		return g.Order(), nil
	}

	include := make(map[string]bool)
	var mark func(name string)
	mark = func(name string) {
		if include[name] {
			return
		}
		include[name] = true
		for _, ref := range g.models[name].Refs {
			mark(ref)
		}
	}

	for _, name := range names {
		if _, ok := g.models[name]; !ok {
			return nil, errors.New(errors.ErrCodeModelNotFound,
				fmt.Sprintf("no model named %q", name)).
				WithSuggestions("Run 'martforge ls' to list the catalog")
		}
		mark(name)
	}
	for _, tag := range tags {
		matched := false
		for name, m := range g.models {
			if m.HasTag(tag) {
				mark(name)
				matched = true
			}
		}
		if !matched {
			return nil, errors.New(errors.ErrCodeModelNotFound,
				fmt.Sprintf("no model tagged %q", tag))
		}
	}

	var out []string
	for _, name := range g.order {
		if include[name] {
			out = append(out, name)
		}
	}
	return out, nil
}

// Downstream returns every model that transitively depends on name, in
// execution order. The runner skips these when name fails.
func (g *Graph) Downstream(name string) []string {
	affected := make(map[string]bool)
	var mark func(n string)
	mark = func(n string) {
		for _, dep := range g.downstream[n] {
			if !affected[dep] {
				affected[dep] = true
				mark(dep)
			}
		}
	}
	mark(name)

	var out []string
	for _, n := range g.order {
		if affected[n] {
			out = append(out, n)
		}
	}
	return out
}

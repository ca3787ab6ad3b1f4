package graph

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// RenderLineage renders the dependency tree of a model: its upstream
// sources and refs above, its transitive dependents below.
func (g *Graph) RenderLineage(name string) (string, error) {
	m := g.Model(name)
	if m == nil {
		return "", fmt.Errorf("model %q not found", name)
	}

	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Lineage for %s\n\n", color.CyanString(name)))

	for _, src := range m.Sources {
		buf.WriteString(fmt.Sprintf("  %s\n", color.YellowString(src)))
	}
	for _, ref := range m.Refs {
		buf.WriteString(fmt.Sprintf("  %s\n", ref))
	}
	if len(m.Sources)+len(m.Refs) > 0 {
		buf.WriteString("    |\n")
	}
	buf.WriteString(fmt.Sprintf("  %s\n", color.CyanString("* "+name)))
	for _, down := range g.Downstream(name) {
		buf.WriteString("    |\n")
		buf.WriteString(fmt.Sprintf("  %s\n", down))
	}

	return buf.String(), nil
}

// RenderOverview renders the whole graph as a table, one row per model
// in dependency order.
func (g *Graph) RenderOverview() string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"#", "Model", "Kind", "Depends On", "Dependents"})
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for i, name := range g.Order() {
		m := g.Model(name)

		kind := string(m.Materialized)
		if m.HasTag("staging") {
			kind = color.GreenString(kind)
		} else {
			kind = color.YellowString(kind)
		}

		deps := append(append([]string{}, m.Sources...), m.Refs...)
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			name,
			kind,
			strings.Join(deps, ", "),
			fmt.Sprintf("%d", len(g.Downstream(name))),
		})
	}
	table.Render()

	return buf.String()
}

package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	cg "github.com/sitegeist/taxonomy/contentgraph"
	"github.com/sitegeist/taxonomy/taxonomy"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	nameStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Width(12)
)

func renderNodeTable(nodes []*cg.Node) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("NAME", "TITLE", "DESCRIPTION", "DIMENSION", "ADDRESS").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, n := range nodes {
		t.Row(
			n.Name.String(),
			n.Label(),
			n.StringProperty("description"),
			n.Subgraph.DimensionSpacePoint.String(),
			n.Address().String(),
		)
	}
	return t.Render()
}

// renderSubtree prints one row per node with name, title and description
// columns. Names are indented by level.
func renderSubtree(st *cg.Subtree) string {
	type row struct {
		indent, name, title, description string
	}
	var rows []row
	var walk func(st *cg.Subtree)
	walk = func(st *cg.Subtree) {
		rows = append(rows, row{
			indent:      strings.Repeat("  ", st.Level),
			name:        taxonomy.SortKey(st.Node),
			title:       st.Node.Label(),
			description: st.Node.StringProperty("description"),
		})
		for _, child := range st.Children {
			walk(child)
		}
	}
	walk(st)

	nameWidth, titleWidth := 0, 0
	for _, r := range rows {
		nameWidth = max(nameWidth, lipgloss.Width(r.indent+r.name))
		titleWidth = max(titleWidth, lipgloss.Width(r.title))
	}

	var b strings.Builder
	for _, r := range rows {
		line := r.indent + nameStyle.Render(r.name) + pad(r.indent+r.name, nameWidth) + "  " +
			dimStyle.Render(r.title) + pad(r.title, titleWidth) + "  " + r.description
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteString("\n")
	}
	return b.String()
}

func pad(s string, width int) string {
	return strings.Repeat(" ", max(0, width-lipgloss.Width(s)))
}

func renderCreated(n *cg.Node) string {
	return nameStyle.Render(n.Name.String()) + " " + dimStyle.Render(n.Address().String())
}

type nodeDetails struct {
	Node       *cg.Node
	Vocabulary *cg.Node
	Ancestors  []*cg.Node
	References []*cg.Node
}

func renderDetails(d nodeDetails) string {
	var b strings.Builder
	line := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	n := d.Node
	line("Name", nameStyle.Render(n.Name.String()))
	line("Title", n.Label())
	line("Description", n.StringProperty("description"))
	line("Type", n.TypeName.String())
	line("Dimension", n.Subgraph.DimensionSpacePoint.String())
	line("Origin", n.OriginDimensionSpacePoint.String())
	line("Address", n.Address().String())
	if d.Vocabulary != nil {
		line("Vocabulary", d.Vocabulary.Name.String())
	}
	if len(d.Ancestors) > 0 {
		// nearest first; print root-most first
		names := make([]string, len(d.Ancestors))
		for i, a := range d.Ancestors {
			names[len(names)-1-i] = a.Name.String()
		}
		line("Ancestors", strings.Join(names, " / "))
	}
	if len(d.References) > 0 {
		names := make([]string, len(d.References))
		for i, r := range d.References {
			names[i] = r.Label()
		}
		line("References", strings.Join(names, ", "))
	}
	return b.String()
}

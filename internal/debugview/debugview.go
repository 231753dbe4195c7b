// Package debugview renders trees and their status changes for terminals.
package debugview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/joeycumines/tickbt/internal/behavior"
	"github.com/rivo/uniseg"
)

// Styles holds the styles used when rendering.
type Styles struct {
	Running lipgloss.Style
	Success lipgloss.Style
	Failure lipgloss.Style
	Header  lipgloss.Style
	Dim     lipgloss.Style
	Active  lipgloss.Style
}

// DefaultStyles returns coloured styles. Colours degrade to plain text
// when the output does not support them.
func DefaultStyles() Styles {
	return Styles{
		Running: lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("35")),
		Failure: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Header:  lipgloss.NewStyle().Bold(true),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Active:  lipgloss.NewStyle().Bold(true),
	}
}

// PlainStyles returns styles that render text unchanged.
func PlainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{Running: s, Success: s, Failure: s, Header: s, Dim: s, Active: s}
}

// Status renders s with its style.
func (st Styles) Status(s behavior.Status) string {
	switch s {
	case behavior.Running:
		return st.Running.Render(s.String())
	case behavior.Success:
		return st.Success.Render(s.String())
	case behavior.Failure:
		return st.Failure.Render(s.String())
	}
	return s.String()
}

// Outline renders tree as an indented outline, one node per line. Roots
// are annotated with their last status; nodes on the active chain are
// marked with '*'.
func Outline(tree *behavior.Tree, st Styles) string {
	var sb strings.Builder
	sb.WriteString(st.Header.Render(fmt.Sprintf("%s (roots=%d, cursor=%d)", tree.ID(), tree.Len(), tree.Cursor())))
	sb.WriteByte('\n')

	active := make(map[behavior.Node]bool)
	for _, root := range tree.ActiveNodes() {
		markActive(root, active)
	}
	for i, root := range tree.Nodes() {
		outline(&sb, root, 1, active, st, tree.Status(i), true)
	}
	return sb.String()
}

func markActive(n behavior.Node, active map[behavior.Node]bool) {
	if n == nil || active[n] {
		return
	}
	active[n] = true
	if c, ok := n.(behavior.Composite); ok {
		for _, child := range c.ActiveChildren() {
			markActive(child, active)
		}
	}
}

func outline(sb *strings.Builder, n behavior.Node, depth int, active map[behavior.Node]bool, st Styles, status behavior.Status, root bool) {
	sb.WriteString(strings.Repeat("  ", depth))
	label := behavior.NodeLabel(n)
	if active[n] {
		sb.WriteString(st.Active.Render("* " + label))
	} else {
		sb.WriteString(st.Dim.Render("  " + label))
	}
	if root {
		sb.WriteString(" [")
		sb.WriteString(st.Status(status))
		sb.WriteByte(']')
	}
	sb.WriteByte('\n')
	if c, ok := n.(behavior.Composite); ok {
		for _, child := range c.Children() {
			outline(sb, child, depth+1, active, st, 0, false)
		}
	}
}

// Pad right-pads s with spaces to width display columns.
func Pad(s string, width int) string {
	w := uniseg.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// Truncate shortens s to at most maxWidth display columns, ending with
// tail when it had to cut. A tail wider than maxWidth is returned as is.
func Truncate(s string, maxWidth int, tail string) string {
	if uniseg.StringWidth(s) <= maxWidth {
		return s
	}
	tailWidth := uniseg.StringWidth(tail)
	if tailWidth > maxWidth {
		return tail
	}
	target := maxWidth - tailWidth

	var (
		sb      strings.Builder
		current int
		cluster string
		width   int
	)
	state := -1
	rest := s
	for len(rest) > 0 {
		cluster, rest, width, state = uniseg.FirstGraphemeClusterInString(rest, state)
		if current+width > target {
			break
		}
		current += width
		sb.WriteString(cluster)
	}
	sb.WriteString(tail)
	return sb.String()
}

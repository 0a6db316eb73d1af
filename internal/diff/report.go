package diff

import (
	"fmt"
	"strings"
)

// severityOrder fixes the group order in text reports.
var severityOrder = []Severity{Breaking, Dangerous, Compatible}

// Text renders the report for terminals: a summary line, then one
// group per severity with one change per line.
func (r *Report) Text() string {
	if r.Empty() {
		return "no changes\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d %s: %d breaking, %d dangerous, %d compatible\n",
		len(r.Changes), plural(len(r.Changes), "change", "changes"),
		r.Breaking, r.Dangerous, r.Compatible)

	for _, sev := range severityOrder {
		group := r.BySeverity(sev)
		if len(group) == 0 {
			continue
		}
		sb.WriteByte('\n')
		sb.WriteString(string(sev))
		sb.WriteString(":\n")
		for _, c := range group {
			sb.WriteString("  ")
			sb.WriteString(c.describe())
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func (c Change) describe() string {
	s := c.Path + ": " + c.Message
	switch {
	case c.Old != "" && c.New != "":
		s += " (" + c.Old + " -> " + c.New + ")"
	case c.Old != "":
		s += " (was " + c.Old + ")"
	case c.New != "":
		s += " (" + c.New + ")"
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

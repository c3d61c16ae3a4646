// Package observability provides structured logging and formatted console output.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/outreach-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// statusOrder is the display order of status kinds in summaries.
var statusOrder = []types.StatusKind{
	types.StatusSent,
	types.StatusNoContactPage,
	types.StatusFailed,
	types.StatusError,
	types.StatusSkipped,
}

// Printer handles formatted output for summaries and probe results
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRunSummary outputs per-status counts for a run or an output list.
// Failure and error reasons are listed underneath, most frequent first.
func (p *Printer) PrintRunSummary(title string, records []types.ResultRecord) {
	counts := make(map[types.StatusKind]int)
	reasons := make(map[string]int)
	var reasonOrder []string
	for _, rec := range records {
		counts[rec.Status.Kind]++
		if rec.Status.Reason == "" {
			continue
		}
		key := rec.Status.String()
		if reasons[key] == 0 {
			reasonOrder = append(reasonOrder, key)
		}
		reasons[key]++
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total targets: %d\n\n", len(records)))
	for _, kind := range statusOrder {
		sb.WriteString(fmt.Sprintf("%-16s %d\n", kind, counts[kind]))
	}

	if len(reasonOrder) > 0 {
		sortByCount(reasonOrder, reasons)
		sb.WriteString("\nReasons:\n")
		count := min(len(reasonOrder), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s (%d)\n", reasonOrder[i], reasons[reasonOrder[i]]))
		}
		if len(reasonOrder) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(reasonOrder)-maxItemsToShow))
		}
	}

	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProbe outputs the contact page and field mapping found for one site.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProbe(site string, candidate *types.ContactPageCandidate, set *types.FormElementSet, mapping *types.FieldMapping) {
	if candidate == nil {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "NO CONTACT PAGE FOUND")
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(site, boxWidth-4))
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Site:    %s\n", site))
	sb.WriteString(fmt.Sprintf("Page:    %s\n", candidate.URL))
	sb.WriteString(fmt.Sprintf("Found:   %s\n", candidate.DiscoveryMethod))
	if set != nil {
		sb.WriteString(fmt.Sprintf("Form:    %s (%d elements)\n", set.ContainerSelector, len(set.Elements)))
	}

	if mapping != nil {
		sb.WriteString("\nFields:\n")
		for _, role := range []types.Role{types.RoleName, types.RoleEmail, types.RoleMessage, types.RolePhone, types.RoleSubmit} {
			selector := "-"
			if el := mapping.Get(role); el != nil {
				selector = el.Selector
			}
			sb.WriteString(fmt.Sprintf("  %-8s %s\n", role, selector))
		}
		for _, cb := range mapping.RequiredCheckboxes {
			sb.WriteString(fmt.Sprintf("  %-8s %s\n", "checkbox", cb.Selector))
		}
	}

	p.printBox("CONTACT FORM", strings.TrimSuffix(sb.String(), "\n"))
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}

// sortByCount orders keys by descending count, keeping first-seen order on ties.
func sortByCount(keys []string, counts map[string]int) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && counts[keys[j]] > counts[keys[j-1]]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}

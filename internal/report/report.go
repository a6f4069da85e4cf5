// Package report renders batch run summaries for the terminal.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"

	"fleetlogix/internal/pipeline"
	"fleetlogix/internal/reconcile"
)

// Reporter writes human-readable run summaries. Color is applied only
// when the output is an interactive terminal.
type Reporter struct {
	out      io.Writer
	useColor bool
}

func New(out io.Writer) *Reporter {
	useColor := false
	if f, ok := out.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Reporter{out: out, useColor: useColor}
}

// RunSummary prints the outcome of one pipeline run.
func (r *Reporter) RunSummary(result pipeline.Result) {
	r.header("PIPELINE RUN SUMMARY")

	table := tablewriter.NewWriter(r.out)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	table.Append([]string{"State", r.stateLabel(result.State)})
	table.Append([]string{"Rows extracted", fmt.Sprintf("%d", result.InputRows)})
	table.Append([]string{"Rows after validation", fmt.Sprintf("%d", result.ValidRows)})
	table.Append([]string{"Rows removed", fmt.Sprintf("%d", result.InputRows-result.ValidRows)})
	table.Append([]string{"Data quality score", fmt.Sprintf("%.2f", result.QualityScore)})
	if result.State == pipeline.StateReconciled {
		table.Append([]string{"New rows", fmt.Sprintf("%d", result.Summary.NewCount)})
		table.Append([]string{"Updated rows", fmt.Sprintf("%d", result.Summary.UpdatedCount)})
		table.Append([]string{"Strategy", string(result.Summary.Strategy)})
	}
	table.Render()

	if len(result.KeyStats) > 0 {
		r.keyStats(result.KeyStats)
	}
}

// Analysis prints the pre-load comparison against the target table.
func (r *Reporter) Analysis(table string, a reconcile.Analysis) {
	r.header("PRE-LOAD ANALYSIS")

	t := tablewriter.NewWriter(r.out)
	t.SetBorder(false)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)

	t.Append([]string{"Target table", table})
	t.Append([]string{"Rows in target", fmt.Sprintf("%d", a.TableRows)})
	t.Append([]string{"Rows in batch", fmt.Sprintf("%d", a.BatchRows)})
	t.Append([]string{"Would insert", fmt.Sprintf("%d", a.NewKeys)})
	t.Append([]string{"Would update", fmt.Sprintf("%d", a.ExistingKeys)})
	t.Render()
}

// keyStats prints per-key coverage from the verification stage.
func (r *Reporter) keyStats(stats []pipeline.KeyStats) {
	fmt.Fprintln(r.out)

	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"Dimensional Key", "Present", "Distinct", "Min", "Max"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, s := range stats {
		name := s.Name
		if s.Present == 0 && r.useColor {
			name = color.RedString(name)
		}
		table.Append([]string{
			name,
			fmt.Sprintf("%d", s.Present),
			fmt.Sprintf("%d", s.Distinct),
			fmt.Sprintf("%d", s.Min),
			fmt.Sprintf("%d", s.Max),
		})
	}
	table.Render()
}

func (r *Reporter) header(title string) {
	line := strings.Repeat("=", 60)
	fmt.Fprintf(r.out, "\n%s\n%s\n%s\n", line, title, line)
}

func (r *Reporter) stateLabel(state pipeline.State) string {
	if !r.useColor {
		return string(state)
	}
	switch state {
	case pipeline.StateReconciled:
		return color.GreenString(string(state))
	case pipeline.StateFailed:
		return color.RedString(string(state))
	default:
		return color.YellowString(string(state))
	}
}

package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/gurumnet/ci-jobs/src/jobsync"
	"github.com/gurumnet/ci-jobs/src/runner"
)

// Report prints one block per processed job as it finishes, then the run
// summary. It is not safe for concurrent use.
type Report struct {
	w     io.Writer
	mode  jobsync.Mode
	color bool
	sec   *Section
}

// NewReport returns a report writing to w.
func NewReport(w io.Writer, mode jobsync.Mode, color bool) *Report {
	return &Report{w: w, mode: mode, color: color}
}

// Job prints the outcome of one job. Its signature matches runner.Config.Reporter.
func (r *Report) Job(o runner.Outcome) {
	if r.sec == nil {
		SectionStart(r.w, "ci_jobs_sync", "Jobs")
		r.sec = NewSection(r.w, "Jobs", 0, r.color)
	}

	icon := StatusIcon("success", r.color)
	if o.Failed() {
		icon = StatusIcon("failed", r.color)
	} else if o.Result.Action == jobsync.Unchanged {
		icon = StatusIcon("skipped", r.color)
	}
	r.sec.Row("%s %s  %s", icon, JobMessage(o, r.mode), Dimmed(formatElapsed(o.Duration), r.color))

	if o.Failed() {
		r.sec.Rows("    ", strings.Split(o.Err.Error(), "\n"))
		return
	}
	if len(o.Result.Diff) > 0 {
		id := "ci_jobs_diff_" + o.Spec.Name
		SectionStartCollapsed(r.w, id, "diff "+o.Spec.Name)
		r.sec.Row("    <<<")
		r.sec.Rows("    ", colorDiff(o.Result.Diff, r.color))
		r.sec.Row("    >>>")
		SectionEnd(r.w, id)
	}
}

// Close ends the job section and prints the summary table and totals.
func (r *Report) Close(sum runner.Summary, elapsed time.Duration) {
	if r.sec != nil {
		r.sec.Close()
		SectionEnd(r.w, "ci_jobs_sync")
	}
	if sum.Selected() > 0 {
		fmt.Fprintln(r.w)
		SummaryTable(r.w, sum, r.mode, r.color)
	}
	fmt.Fprintf(r.w, "\n    %s  (%s)\n", Totals(sum), formatElapsed(elapsed))
}

// JobMessage is the one-line description of an outcome.
func JobMessage(o runner.Outcome, mode jobsync.Mode) string {
	name := o.Spec.Name
	var msg string
	switch {
	case o.Failed():
		msg = fmt.Sprintf("Failed job '%s'", name)
	case o.Result.Action == jobsync.Create:
		msg = fmt.Sprintf("Creating job '%s'", name)
	case o.Result.Action == jobsync.Update:
		msg = fmt.Sprintf("Updating job '%s'", name)
	default:
		msg = fmt.Sprintf("Skipped '%s' because the config is the same", name)
	}
	if mode == jobsync.Preview {
		msg += " (dry run)"
	}
	return msg
}

// ResultLabel is the short result column of the summary table.
func ResultLabel(o runner.Outcome, mode jobsync.Mode) string {
	if o.Failed() {
		return "failed"
	}
	switch o.Result.Action {
	case jobsync.Create:
		if mode == jobsync.Preview {
			return "would create"
		}
		return "created"
	case jobsync.Update:
		if mode == jobsync.Preview {
			return "would update"
		}
		return "updated"
	default:
		return "unchanged"
	}
}

// Totals is the final counts line.
func Totals(sum runner.Summary) string {
	s := fmt.Sprintf("%d selected: %d created, %d updated, %d unchanged, %d failed",
		sum.Selected(), sum.Created, sum.Updated, sum.Unchanged, sum.Failed)
	if sum.Skipped > 0 {
		s += fmt.Sprintf(" (%d of %d skipped)", sum.Skipped, sum.Total)
	}
	return s
}

// SummaryTable renders one row per processed job.
func SummaryTable(w io.Writer, sum runner.Summary, mode jobsync.Mode, color bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"JOB", "PLATFORM", "DISTRIBUTION", "RESULT", "TIME"})

	for _, o := range sum.Outcomes {
		label := ResultLabel(o, mode)
		if color {
			label = resultColor(o).Sprint(label)
		}
		t.AppendRow(table.Row{o.Spec.Name, o.Spec.Platform, o.Spec.Distribution, label, formatElapsed(o.Duration)})
	}
	t.Render()
}

func resultColor(o runner.Outcome) text.Colors {
	switch {
	case o.Failed():
		return text.Colors{text.FgRed}
	case o.Result.Action == jobsync.Unchanged:
		return text.Colors{text.FgHiBlack}
	default:
		return text.Colors{text.FgGreen}
	}
}

func colorDiff(lines []string, color bool) []string {
	if !color {
		return lines
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		switch {
		case strings.HasPrefix(l, "+++"), strings.HasPrefix(l, "---"):
			out[i] = colorize(l, colorBold, true)
		case strings.HasPrefix(l, "@@"):
			out[i] = colorize(l, colorCyan, true)
		case strings.HasPrefix(l, "+"):
			out[i] = colorize(l, colorGreen, true)
		case strings.HasPrefix(l, "-"):
			out[i] = colorize(l, colorRed, true)
		default:
			out[i] = l
		}
	}
	return out
}

package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/slok/bulkr/internal/model"
)

// TablePrinter prints batch information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

var _ Printer = &TablePrinter{}

// PrintItems prints target items in a table format.
func (t *TablePrinter) PrintItems(items []model.TargetItem) error {
	if len(items) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tNAME\tOWNER")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", it.ID, orDash(it.DisplayName), orDash(it.OwnerID))
	}

	return nil
}

// PrintRunReport prints the detailed result of a batch run.
func (t *TablePrinter) PrintRunReport(r model.RunReport) error {
	fmt.Fprintf(t.writer, "Run:        %s\n", r.ID)
	fmt.Fprintf(t.writer, "Action:     %s\n", r.Action)
	fmt.Fprintf(t.writer, "Completed:  %d of %d\n", r.Status.Completed, r.Status.Total)
	fmt.Fprintf(t.writer, "Stopped:    %s\n", stopReasonText(r.Status.StopReason))
	fmt.Fprintf(t.writer, "Started:    %s\n", FormatTimestamp(r.StartedAt))
	fmt.Fprintf(t.writer, "Duration:   %s\n", FormatDuration(r.FinishedAt.Sub(r.StartedAt)))

	if len(r.Items) == 0 {
		return nil
	}

	fmt.Fprintln(t.writer)
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ITEM\tRESULT\tERROR")
	for _, it := range r.Items {
		result := "ok"
		if !it.Success {
			result = string(it.ErrorKind)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", it.ItemID, result, orDash(it.Error))
	}

	return nil
}

// PrintRunReportList prints run reports in a table format.
func (t *TablePrinter) PrintRunReportList(reports []model.RunReport) error {
	if len(reports) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tACTION\tCOMPLETED\tSTOPPED\tSTARTED")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\t%s\n",
			r.ID,
			r.Action,
			r.Status.Completed,
			r.Status.Total,
			stopReasonText(r.Status.StopReason),
			TimeAgo(r.StartedAt),
		)
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

func stopReasonText(r model.StopReason) string {
	switch r {
	case model.StopReasonUser:
		return "by user"
	case model.StopReasonRateLimit:
		return "rate limited"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

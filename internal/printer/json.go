package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/bulkr/internal/model"
)

// JSONPrinter prints batch information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

var _ Printer = &JSONPrinter{}

type itemOutput struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	OwnerID      string `json:"owner_id,omitempty"`
}

type itemResultOutput struct {
	ItemID    string `json:"item_id"`
	Success   bool   `json:"success"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

type reportOutput struct {
	ID         string             `json:"id"`
	Action     string             `json:"action"`
	Completed  int                `json:"completed"`
	Total      int                `json:"total"`
	StopReason string             `json:"stop_reason"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Items      []itemResultOutput `json:"items,omitempty"`
}

type messageOutput struct {
	Message string `json:"message"`
}

// PrintItems prints target items in JSON format.
func (j *JSONPrinter) PrintItems(items []model.TargetItem) error {
	out := make([]itemOutput, len(items))
	for i, it := range items {
		out[i] = itemOutput{
			ID:           it.ID,
			DisplayName:  it.DisplayName,
			ThumbnailURL: it.ThumbnailURL,
			OwnerID:      it.OwnerID,
		}
	}

	return j.encode(out)
}

// PrintRunReport prints a run report with its item results in JSON format.
func (j *JSONPrinter) PrintRunReport(r model.RunReport) error {
	return j.encode(toReportOutput(r, true))
}

// PrintRunReportList prints run reports without item results in JSON format.
func (j *JSONPrinter) PrintRunReportList(reports []model.RunReport) error {
	out := make([]reportOutput, len(reports))
	for i, r := range reports {
		out[i] = toReportOutput(r, false)
	}

	return j.encode(out)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func toReportOutput(r model.RunReport, withItems bool) reportOutput {
	out := reportOutput{
		ID:         r.ID,
		Action:     string(r.Action),
		Completed:  r.Status.Completed,
		Total:      r.Status.Total,
		StopReason: string(r.Status.StopReason),
		StartedAt:  r.StartedAt.UTC(),
		FinishedAt: r.FinishedAt.UTC(),
	}

	if withItems {
		out.Items = make([]itemResultOutput, 0, len(r.Items))
		for _, it := range r.Items {
			out.Items = append(out.Items, itemResultOutput{
				ItemID:    it.ItemID,
				Success:   it.Success,
				ErrorKind: string(it.ErrorKind),
				Error:     it.Error,
			})
		}
	}

	return out
}

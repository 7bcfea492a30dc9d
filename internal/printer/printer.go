package printer

import "github.com/slok/bulkr/internal/model"

// Printer knows how to print batch information in different formats.
type Printer interface {
	PrintItems(items []model.TargetItem) error
	PrintRunReport(r model.RunReport) error
	PrintRunReportList(reports []model.RunReport) error
	PrintMessage(msg string) error
}

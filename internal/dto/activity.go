package dto

// ActivityQuery mirrors supported listing filters for a lab's activity trail.
type ActivityQuery struct {
	Action   string
	Page     int
	PageSize int
}

// Export formats supported by the activity export endpoint.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

package models

// ValidationResult is produced per uploaded spreadsheet and never persisted.
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// SheetPreview is the safe, row-object view of one parsed sheet.
type SheetPreview struct {
	Name      string              `json:"name"`
	Rows      []map[string]string `json:"rows"`
	RowCount  int                 `json:"rowCount"`
	Unsafe    bool                `json:"unsafe"`
	Truncated bool                `json:"truncated"`
}

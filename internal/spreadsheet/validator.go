package spreadsheet

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"report-service/internal/models"
)

const (
	MaxFileSize        int64 = 10 * 1024 * 1024
	MaxRowsPerSheet          = 10000
	MaxSheetNameLength       = 31

	MIMESpreadsheet  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMEMacroEnabled = "application/vnd.ms-excel.sheet.macroEnabled.12"
)

var allowedExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
}

// Keys are lower case, as mime.ParseMediaType returns them.
var allowedMIMETypes = map[string]bool{
	strings.ToLower(MIMESpreadsheet):  true,
	strings.ToLower(MIMEMacroEnabled): true,
}

var (
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidExtension = errors.New("invalid file extension")
	ErrInvalidFileType  = errors.New("invalid file type")
)

// FileInfo is what the caller knows about an upload before reading its bytes.
type FileInfo struct {
	Name     string
	Size     int64
	MIMEType string
}

func ValidateFileSize(size int64) error {
	if size > MaxFileSize {
		return fmt.Errorf("%w: file size %d bytes exceeds the maximum allowed size of 10 MB", ErrFileTooLarge, size)
	}
	return nil
}

// ValidateFileExtension is case-insensitive.
func ValidateFileExtension(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return fmt.Errorf("%w: only .xlsx and .xlsm files are allowed, got %q", ErrInvalidExtension, ext)
	}
	return nil
}

// ValidateFileType ignores case and media type parameters such as charset.
func ValidateFileType(mimeType string) error {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil || !allowedMIMETypes[mediaType] {
		return fmt.Errorf("%w: only Excel workbooks are allowed, got %q", ErrInvalidFileType, mimeType)
	}
	return nil
}

// ValidateExcelFile runs every check and collects all failures instead of stopping at the first.
func ValidateExcelFile(info FileInfo) models.ValidationResult {
	result := models.ValidationResult{Errors: []string{}}

	checks := []error{
		ValidateFileSize(info.Size),
		ValidateFileExtension(info.Name),
		ValidateFileType(info.MIMEType),
	}
	for _, err := range checks {
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

// ValidateSheetName accepts non-empty names up to 31 characters without \ / ? * [ ] :
func ValidateSheetName(name string) error {
	if name == "" {
		return errors.New("sheet name must not be empty")
	}
	if n := len([]rune(name)); n > MaxSheetNameLength {
		return fmt.Errorf("sheet name %q is %d characters long, the limit is %d", name, n, MaxSheetNameLength)
	}
	if i := strings.IndexAny(name, `\/?*[]:`); i >= 0 {
		return fmt.Errorf("sheet name %q contains the forbidden character %q", name, name[i])
	}
	return nil
}

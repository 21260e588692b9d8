// Package validation provides common validation utilities.
package validation

import (
	"fmt"
	"strings"

	"github.com/iwvelando/rent-renewal/pkg/constants"
)

// ExportFormats lists the supported report formats.
var ExportFormats = []string{
	constants.ExportFormatHTML,
	constants.ExportFormatMarkdown,
	constants.ExportFormatCSV,
	constants.ExportFormatText,
}

// ValidateExportFormat checks if the export format is one of the supported formats.
func ValidateExportFormat(format string) error {
	for _, f := range ExportFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("expected export format of %s, got %q", strings.Join(ExportFormats, ", "), format)
}

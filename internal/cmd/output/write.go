package output

import (
	"io"

	"github.com/agentstation/fleetsync/internal/cmd/table"
)

// Write renders rows as a table, or raw as JSON or YAML.
func Write(w io.Writer, format Format, rows table.Data, raw any) error {
	formatter := NewFormatter(format)
	switch format {
	case FormatJSON, FormatYAML:
		return formatter.Format(w, raw)
	default:
		return formatter.Format(w, rows)
	}
}

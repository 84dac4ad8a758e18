// Package validate syntax-checks candidate documents before they are written.
package validate

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml/parser"
	"github.com/pelletier/go-toml/v2"
)

// Format identifies how a document body is checked.
type Format string

// Supported formats.
const (
	Text Format = "text"
	YAML Format = "yaml"
	TOML Format = "toml"
	JSON Format = "json"
)

// Outcome is the result of a validation.
type Outcome struct {
	Valid   bool
	Message string
}

func ok() Outcome { return Outcome{Valid: true} }

func failed(format Format, err error) Outcome {
	return Outcome{Message: fmt.Sprintf("%s: %v", format, err)}
}

// Validate parses body as format. Text always validates; unknown formats are
// reported as invalid. It never panics.
func Validate(format Format, body string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Message: fmt.Sprintf("%s: parser panic: %v", format, r)}
		}
	}()

	switch format {
	case Text, "":
		return ok()
	case YAML:
		// Syntax only: custom tags such as !reference must pass.
		if _, err := parser.ParseBytes([]byte(body), 0); err != nil {
			return failed(format, err)
		}
	case TOML:
		var v map[string]any
		if err := toml.Unmarshal([]byte(body), &v); err != nil {
			return failed(format, err)
		}
	case JSON:
		var v any
		if err := json.Unmarshal([]byte(body), &v); err != nil {
			return failed(format, err)
		}
	default:
		return Outcome{Message: fmt.Sprintf("unsupported format %q", format)}
	}
	return ok()
}

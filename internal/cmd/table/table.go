// Package table converts run results and fleet configuration into rows for
// CLI tables.
package table

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/fleetsync/internal/cmd/emoji"
	"github.com/agentstation/fleetsync/pkg/applier"
	"github.com/agentstation/fleetsync/pkg/config"
	"github.com/agentstation/fleetsync/pkg/depupdate"
	"github.com/agentstation/fleetsync/pkg/handlers"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// StatusLabel renders a status as "<symbol> <Title>".
func StatusLabel(status handlers.Status) string {
	return emoji.ForStatus(string(status)) + " " + cases.Title(language.English).String(string(status))
}

// SummaryToTableData renders the status counts as a single row.
func SummaryToTableData(s *applier.Summary) Data {
	headers := []string{"Projects", "Created", "Updated", "Unchanged"}
	row := []string{
		strconv.Itoa(s.ProjectsProcessed),
		strconv.Itoa(s.Created),
		strconv.Itoa(s.Updated),
		strconv.Itoa(s.Unchanged),
	}
	if s.Skipped > 0 {
		headers = append(headers, "Skipped")
		row = append(row, strconv.Itoa(s.Skipped))
	}
	if s.Errors > 0 {
		headers = append(headers, "Errors")
		row = append(row, strconv.Itoa(s.Errors))
	}
	headers = append(headers, "Elapsed")
	row = append(row, s.Elapsed.Round(time.Millisecond).String())

	align := make([]Align, len(headers))
	for i := range align {
		align[i] = AlignCenter
	}
	return Data{Headers: headers, Rows: [][]string{row}, ColumnAlignment: align}
}

// ChangesToTableData lists created, updated and failed config types.
func ChangesToTableData(changes []applier.Change) Data {
	rows := make([][]string, 0, len(changes))
	for _, c := range changes {
		msg := c.Message
		if msg == "" {
			msg = "-"
		}
		rows = append(rows, []string{c.Project, c.ConfigType, StatusLabel(c.Status), msg})
	}
	return Data{
		Headers: []string{"Project", "Config Type", "Status", "Details"},
		Rows:    rows,
	}
}

// PostStepsToTableData lists post-processing outcomes.
func PostStepsToTableData(steps []applier.PostStep) Data {
	rows := make([][]string, 0, len(steps))
	for _, s := range steps {
		symbol := emoji.Success
		if !s.OK {
			symbol = emoji.Error
		}
		msg := strings.ReplaceAll(s.Message, "\n", " | ")
		if msg == "" {
			msg = "-"
		}
		rows = append(rows, []string{s.Project, s.Step, symbol, msg})
	}
	return Data{
		Headers:         []string{"Project", "Step", "OK", "Details"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignCenter, AlignLeft},
	}
}

// ProjectsToTableData lists configured projects with their effective
// config types.
func ProjectsToTableData(cfg *config.Config) Data {
	rows := make([][]string, 0, len(cfg.Projects))
	for i := range cfg.Projects {
		p := &cfg.Projects[i]
		rows = append(rows, []string{p.Name, p.Path, strings.Join(cfg.EffectiveConfigs(p), ", ")})
	}
	return Data{
		Headers: []string{"Name", "Path", "Configs"},
		Rows:    rows,
	}
}

// ConfigTypesToTableData lists registered config types and their output
// files relative to the project root.
func ConfigTypesToTableData(names []string, outputs map[string]string) Data {
	rows := make([][]string, 0, len(names))
	for _, n := range names {
		rows = append(rows, []string{n, outputs[n]})
	}
	return Data{
		Headers: []string{"Config Type", "Output"},
		Rows:    rows,
	}
}

// UpdatesToTableData lists dependency checks for one file.
func UpdatesToTableData(updates []depupdate.Update) Data {
	rows := make([][]string, 0, len(updates))
	for _, u := range updates {
		state := emoji.Success + " Latest"
		latest := u.Latest
		switch {
		case u.Error != "":
			state = emoji.Warning + " Lookup Failed"
			latest = "-"
		case u.Updated:
			state = emoji.Updated + " Updated"
		}
		rows = append(rows, []string{u.Package, u.Current, latest, state})
	}
	return Data{
		Headers: []string{"Package", "Current", "Latest", "State"},
		Rows:    rows,
	}
}

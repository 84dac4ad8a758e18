package applier

import (
	"fmt"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/fleetsync/pkg/handlers"
)

// Change is one recorded outcome other than unchanged or skipped.
type Change struct {
	Project    string          `json:"project" yaml:"project"`
	ConfigType string          `json:"config_type" yaml:"config_type"`
	Status     handlers.Status `json:"status" yaml:"status"`
	Message    string          `json:"message,omitempty" yaml:"message,omitempty"`
}

// PostStep is the outcome of a command run after a project's handlers.
// Post steps never affect the status counts.
type PostStep struct {
	Project string `json:"project" yaml:"project"`
	Step    string `json:"step" yaml:"step"`
	OK      bool   `json:"ok" yaml:"ok"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Summary aggregates a run. It is read-only once Run returns.
type Summary struct {
	DryRun            bool          `json:"dry_run" yaml:"dry_run"`
	Created           int           `json:"created" yaml:"created"`
	Updated           int           `json:"updated" yaml:"updated"`
	Unchanged         int           `json:"unchanged" yaml:"unchanged"`
	Skipped           int           `json:"skipped" yaml:"skipped"`
	Errors            int           `json:"errors" yaml:"errors"`
	ProjectsProcessed int           `json:"projects_processed" yaml:"projects_processed"`
	Changes           []Change      `json:"changes,omitempty" yaml:"changes,omitempty"`
	ErrorMessages     []string      `json:"error_messages,omitempty" yaml:"error_messages,omitempty"`
	PostSteps         []PostStep    `json:"post_steps,omitempty" yaml:"post_steps,omitempty"`
	Warnings          []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	StartedAt         utc.Time      `json:"started_at" yaml:"started_at"`
	Elapsed           time.Duration `json:"elapsed" yaml:"elapsed"`
}

func newSummary(dryRun bool) *Summary {
	return &Summary{DryRun: dryRun, StartedAt: utc.Now()}
}

// HasErrors reports whether any error was recorded.
func (s *Summary) HasErrors() bool {
	return s.Errors > 0
}

// HasChanges reports whether anything was (or would be) written.
func (s *Summary) HasChanges() bool {
	return s.Created+s.Updated > 0
}

// Total is the number of recorded handler outcomes.
func (s *Summary) Total() int {
	return s.Created + s.Updated + s.Unchanged + s.Skipped + s.Errors
}

func (s *Summary) record(project, configType string, res handlers.Result) {
	switch res.Status {
	case handlers.StatusCreated:
		s.Created++
	case handlers.StatusUpdated:
		s.Updated++
	case handlers.StatusUnchanged:
		s.Unchanged++
		return
	case handlers.StatusSkipped:
		s.Skipped++
		return
	default:
		s.Errors++
		if res.Message != "" {
			s.ErrorMessages = append(s.ErrorMessages, fmt.Sprintf("%s/%s: %s", project, configType, res.Message))
		}
	}
	s.Changes = append(s.Changes, Change{
		Project:    project,
		ConfigType: configType,
		Status:     res.Status,
		Message:    res.Message,
	})
}

func (s *Summary) projectError(project, message string) {
	s.Errors++
	s.ErrorMessages = append(s.ErrorMessages, project+": "+message)
}

func (s *Summary) postStep(ps PostStep) {
	s.PostSteps = append(s.PostSteps, ps)
}

package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/fleetsync/internal/cmd/table"
	"github.com/agentstation/fleetsync/pkg/applier"
	"github.com/agentstation/fleetsync/pkg/config"
	"github.com/agentstation/fleetsync/pkg/handlers"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"", "", false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectFormatExplicit(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatJSON).Format(&buf, map[string]int{"created": 2}))
	assert.Equal(t, "{\n  \"created\": 2\n}\n", buf.String())
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := struct {
		Names []string `yaml:"names"`
	}{Names: []string{"alpha", "beta"}}
	require.NoError(t, NewFormatter(FormatYAML).Format(&buf, data))
	assert.Equal(t, "names:\n- alpha\n- beta\n", buf.String())
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	err := NewFormatter(FormatTable).Format(&buf, table.Data{
		Headers: []string{"Name", "Path"},
		Rows:    [][]string{{"alpha", "~/alpha"}},
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "~/alpha")
}

func TestTableFormatterReflection(t *testing.T) {
	type row struct {
		ProjectName string `json:"project_name"`
		Hidden      string `json:"-"`
		Count       int
	}
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, []row{{ProjectName: "alpha", Hidden: "secret", Count: 3}}))
	out := buf.String()
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "3")
	assert.NotContains(t, out, "secret")
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, true)

	c.Project(&config.Project{Name: "alpha"}, "/src/alpha")
	c.Result("alpha", "ruff", handlers.Result{Status: handlers.StatusCreated})
	c.Result("alpha", "my-py-lib", handlers.Result{Status: handlers.StatusUpdated, Message: "aaaaaaaa -> bbbbbbbb"})
	c.Diff("alpha", "gitignore", "")
	c.Diff("alpha", "ruff", "-a\n+b\n")
	c.PostStep(applier.PostStep{Project: "alpha", Step: "uv sync", Message: "boom"})

	out := buf.String()
	assert.Contains(t, out, "alpha (/src/alpha)\n")
	assert.Contains(t, out, "  + ruff            : would create\n")
	assert.Contains(t, out, "  ~ my-py-lib       : would update (aaaaaaaa -> bbbbbbbb)\n")
	assert.Contains(t, out, "  ✓ gitignore       : up to date\n")
	assert.Contains(t, out, "      -a\n      +b\n")
	assert.Contains(t, out, "  ✗ uv sync failed\n      boom\n")
}

func TestConsoleSummary(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)
	s := &applier.Summary{
		Errors:        2,
		Changes:       []applier.Change{{Project: "alpha", ConfigType: "ruff", Status: handlers.StatusError, Message: "boom"}},
		ErrorMessages: []string{"alpha/ruff: boom", "ghost: directory not found"},
	}
	require.NoError(t, c.Summary(s))

	out := buf.String()
	assert.Contains(t, out, "ghost: directory not found")
	assert.NotContains(t, out, "✗ alpha/ruff: boom")
	assert.Contains(t, out, "finished with 2 error(s)")
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	rows := table.Data{Headers: []string{"Name"}, Rows: [][]string{{"alpha"}}}
	require.NoError(t, Write(&buf, FormatJSON, rows, []string{"alpha"}))
	assert.Equal(t, "[\n  \"alpha\"\n]\n", buf.String())
}

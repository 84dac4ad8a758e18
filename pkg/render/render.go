// Package render resolves and executes the templates behind each config type.
//
// Templates use Go text/template syntax and see three scopes:
//
//	{{ .project.name }}            fields of the project being rendered
//	{{ .defaults.python_version }} fleet-wide defaults
//	{{ .vars.registry }}           default vars overlaid with project vars
//
// Missing keys render as an empty string rather than failing.
package render

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"text/template/parse"

	"github.com/agentstation/fleetsync/pkg/config"
	"github.com/agentstation/fleetsync/pkg/errors"
)

// Data is the value templates execute against.
type Data map[string]any

// NewData builds the template scopes for a project.
func NewData(cfg *config.Config, p *config.Project) Data {
	return Data{
		"project": map[string]any{
			"name":               p.Name,
			"path":               p.Path,
			"configs":            p.Configs,
			"exclude_configs":    p.ExcludeConfigs,
			"vars":               p.Vars,
			"template_overrides": p.TemplateOverrides,
			"license":            map[string]any{"type": p.License.Type},
		},
		"defaults": map[string]any{
			"python_version": cfg.Defaults.PythonVersion,
			"configs":        cfg.Defaults.Configs,
			"vars":           cfg.Defaults.Vars,
		},
		"vars": cfg.MergedVars(p),
	}
}

// TemplatePath returns the template for configType. A project override wins
// over templateDir/subdir/file.
func TemplatePath(p *config.Project, configType, templateDir, subdir, file string) string {
	if override, ok := p.TemplateOverrides[configType]; ok && override != "" {
		return config.ExpandPath(override)
	}
	return filepath.Join(templateDir, subdir, file)
}

// Exists reports whether a template file is present.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Render loads the template at path and executes it against data. A missing
// file yields *errors.TemplateNotFoundError.
func Render(path string, data Data) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewTemplateNotFoundError(path)
		}
		return "", errors.WrapIO("read", path, err)
	}
	return execute(filepath.Base(path), string(src), data)
}

// RenderString renders a single value. Strings without "{{" pass through.
func RenderString(s string, data Data) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}
	return execute("value", s, data)
}

// funcs are available to every template.
var funcs = template.FuncMap{"orBlank": orBlank}

// orBlank turns a missing value into "".
func orBlank(v any) any {
	if v == nil {
		return ""
	}
	return v
}

func execute(name, src string, data Data) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=zero").Funcs(funcs).Parse(src)
	if err != nil {
		return "", errors.WrapParse("template", name, err)
	}
	for _, t := range tmpl.Templates() {
		if t.Tree != nil {
			blankMissing(t.Tree, t.Tree.Root)
		}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.WrapParse("template", name, err)
	}
	return buf.String(), nil
}

// blankMissing pipes every printing action through orBlank. A missing key of
// a map[string]any scope is a nil interface, which text/template would print
// as "<no value>".
func blankMissing(tree *parse.Tree, node parse.Node) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, c := range n.Nodes {
			blankMissing(tree, c)
		}
	case *parse.ActionNode:
		if len(n.Pipe.Decl) > 0 {
			return
		}
		// Copy a parsed command so the new one belongs to tree.
		cmd := n.Pipe.Cmds[len(n.Pipe.Cmds)-1].Copy().(*parse.CommandNode)
		cmd.Args = []parse.Node{parse.NewIdentifier("orBlank").SetTree(tree).SetPos(cmd.Pos)}
		n.Pipe.Cmds = append(n.Pipe.Cmds, cmd)
	case *parse.IfNode:
		blankMissing(tree, n.List)
		blankMissing(tree, n.ElseList)
	case *parse.RangeNode:
		blankMissing(tree, n.List)
		blankMissing(tree, n.ElseList)
	case *parse.WithNode:
		blankMissing(tree, n.List)
		blankMissing(tree, n.ElseList)
	}
}

// AppendLines appends trailer lines to body so that exactly one newline
// separates the body from the first line and follows the last one.
func AppendLines(body string, lines []string) string {
	if len(lines) == 0 {
		return body
	}
	return strings.TrimRight(body, "\n") + "\n" + strings.Join(lines, "\n") + "\n"
}

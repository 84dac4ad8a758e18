// Package yamlpath resolves structural paths such as /renovate/image/name to
// source lines of a YAML document, and rewrites the value on a single line
// without touching the rest of the document.
package yamlpath

import (
	"strconv"
	"strings"

	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"

	"github.com/agentstation/fleetsync/pkg/errors"
)

// Document is a parsed YAML document used for line lookups.
type Document struct {
	body ast.Node
}

// Parse parses the first document of src. Custom tags are accepted.
func Parse(src string) (*Document, error) {
	file, err := parser.ParseBytes([]byte(src), 0)
	if err != nil {
		return nil, errors.WrapParse("yaml", "", err)
	}
	doc := &Document{}
	if len(file.Docs) > 0 && file.Docs[0] != nil {
		doc.body = file.Docs[0].Body
	}
	return doc, nil
}

// Split breaks a path into segments. Paths starting with "/" use slashes;
// others use dots. Empty segments are dropped.
func Split(path string) []string {
	sep := "."
	if strings.HasPrefix(path, "/") {
		sep = "/"
	}
	var segments []string
	for _, s := range strings.Split(path, sep) {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// Line returns the 1-based line of the key (or sequence item) that path
// names.
func (d *Document) Line(path string) (int, bool) {
	segments := Split(path)
	if len(segments) == 0 || d.body == nil {
		return 0, false
	}

	node := d.body
	line := 0
	for _, seg := range segments {
		switch n := unwrap(node).(type) {
		case *ast.MappingNode:
			mv := findKey(n.Values, seg)
			if mv == nil {
				return 0, false
			}
			line, node = mv.Key.GetToken().Position.Line, mv.Value
		case *ast.MappingValueNode:
			mv := findKey([]*ast.MappingValueNode{n}, seg)
			if mv == nil {
				return 0, false
			}
			line, node = mv.Key.GetToken().Position.Line, mv.Value
		case *ast.SequenceNode:
			idx, err := strconv.Atoi(strings.Trim(seg, "[]"))
			if err != nil || idx < 0 || idx >= len(n.Values) {
				return 0, false
			}
			node = n.Values[idx]
			line = unwrap(node).GetToken().Position.Line
		default:
			return 0, false
		}
	}
	return line, line > 0
}

func unwrap(n ast.Node) ast.Node {
	for {
		switch v := n.(type) {
		case *ast.AnchorNode:
			n = v.Value
		case *ast.TagNode:
			n = v.Value
		default:
			return n
		}
	}
}

func findKey(values []*ast.MappingValueNode, key string) *ast.MappingValueNode {
	for _, mv := range values {
		if mv != nil && mv.Key != nil && keyString(mv.Key) == key {
			return mv
		}
	}
	return nil
}

func keyString(k ast.MapKeyNode) string {
	if s, ok := k.(*ast.StringNode); ok {
		return s.Value
	}
	return strings.Trim(k.String(), `"'`)
}

// ReplaceValue keeps the indentation, sequence markers and "key:" prefix of
// line and replaces the rest with value. Lines without a key are returned
// unchanged with ok false.
func ReplaceValue(line, value string) (string, bool) {
	i := 0
	skipBlank := func() {
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
	}
	skipBlank()
	for i+1 < len(line) && line[i] == '-' && (line[i+1] == ' ' || line[i+1] == '\t') {
		i++
		skipBlank()
	}
	if i < len(line) && (line[i] == '"' || line[i] == '\'') {
		if end := strings.IndexByte(line[i+1:], line[i]); end >= 0 {
			i += end + 2
		}
	}
	for ; i < len(line); i++ {
		if line[i] != ':' {
			continue
		}
		if i+1 == len(line) || line[i+1] == ' ' || line[i+1] == '\t' {
			i++
			skipBlank()
			return line[:i] + value, true
		}
	}
	return line, false
}

// SetLine replaces the value on the 1-based line of src, preserving the
// line's ending.
func SetLine(src string, line int, value string) (string, bool) {
	return editLine(src, line, func(body string) (string, bool) {
		return ReplaceValue(body, value)
	})
}

// ReplaceItem replaces the scalar of a plain sequence item line such as
// "  - pytest>=8.0", keeping indentation and the marker.
func ReplaceItem(line, value string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, "- ") && !strings.HasPrefix(trimmed, "-\t") {
		return line, false
	}
	prefix := line[:len(line)-len(trimmed)+2]
	return prefix + value, true
}

// SetItem replaces the sequence item on the 1-based line of src.
func SetItem(src string, line int, value string) (string, bool) {
	return editLine(src, line, func(body string) (string, bool) {
		return ReplaceItem(body, value)
	})
}

func editLine(src string, line int, edit func(string) (string, bool)) (string, bool) {
	lines := strings.SplitAfter(src, "\n")
	if line < 1 || line > len(lines) {
		return src, false
	}
	raw := lines[line-1]
	body := strings.TrimRight(raw, "\r\n")
	ending := raw[len(body):]
	replaced, ok := edit(body)
	if !ok {
		return src, false
	}
	lines[line-1] = replaced + ending
	return strings.Join(lines, ""), true
}

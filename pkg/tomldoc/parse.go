package tomldoc

import (
	stderrors "errors"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"

	"github.com/agentstation/fleetsync/pkg/errors"
)

// valueLead turns a raw entry value back into a parseable statement.
const valueLead = "v ="

// statement is one top-level table header or key/value.
type statement struct {
	kind   unstable.Kind
	key    []string
	start  int // offset of the line holding the statement
	keyEnd int // offset just past the last key part
}

// Parse builds a Document from TOML source. The source must be valid TOML.
func Parse(src string) (*Document, error) {
	var check map[string]any
	if err := toml.Unmarshal([]byte(src), &check); err != nil {
		var de *toml.DecodeError
		if stderrors.As(err, &de) {
			pe := errors.NewParseError("toml", "", de.Error(), err)
			pe.Line, pe.Column = de.Position()
			return nil, pe
		}
		return nil, errors.WrapParse("toml", "", err)
	}
	stmts, comments, err := statements(src)
	if err != nil {
		return nil, errors.WrapParse("toml", "", err)
	}

	doc := &Document{Root: &Block{}}
	current := doc.Root
	leading := src
	if len(stmts) > 0 {
		leading = src[:stmts[0].start]
	}
	for i, st := range stmts {
		regionEnd := len(src)
		if i+1 < len(stmts) {
			regionEnd = stmts[i+1].start
		}
		end := statementEnd(src, st.start, regionEnd, comments)

		switch st.kind {
		case unstable.Table, unstable.ArrayTable:
			b := &Block{
				Path:    st.key,
				Array:   st.kind == unstable.ArrayTable,
				Leading: leading,
				Header:  src[st.start:end],
			}
			doc.Blocks = append(doc.Blocks, b)
			current = b
		default:
			eq := st.keyEnd + strings.IndexByte(src[st.keyEnd:end], '=') + 1
			current.Entries = append(current.Entries, &Entry{
				Key:     st.key,
				Leading: leading,
				Prefix:  src[st.start:eq],
				Value:   src[eq:end],
			})
		}
		leading = src[end:regionEnd]
	}
	doc.Trailing = leading
	return doc, nil
}

// statements lists the headers and key/values of src in order, plus the
// offsets of comments that stand on their own line.
func statements(src string) ([]statement, map[int]bool, error) {
	p := &unstable.Parser{KeepComments: true}
	p.Reset([]byte(src))

	var stmts []statement
	comments := make(map[int]bool)
	for p.NextExpression() {
		n := p.Expression()
		if n.Kind == unstable.Comment {
			comments[int(n.Raw.Offset)] = true
			continue
		}
		st := statement{kind: n.Kind}
		it := n.Key()
		for it.Next() {
			k := it.Node()
			if st.key == nil {
				st.start = lineStart(src, int(k.Raw.Offset))
			}
			st.key = append(st.key, string(k.Data))
			st.keyEnd = int(k.Raw.Offset + k.Raw.Length)
		}
		stmts = append(stmts, st)
	}
	if err := p.Error(); err != nil {
		return nil, nil, err
	}
	return stmts, comments, nil
}

// statementEnd returns where the statement starting at start stops inside
// [start, end): blank lines and own-line comments at the tail belong to
// whatever follows.
func statementEnd(src string, start, end int, comments map[int]bool) int {
	for end > start {
		ls := lineStart(src, end-1)
		if ls <= start {
			return end
		}
		line := src[ls:end]
		body := strings.TrimLeft(line, " \t")
		blank := strings.TrimSpace(line) == ""
		comment := strings.HasPrefix(body, "#") && comments[ls+len(line)-len(body)]
		if !blank && !comment {
			return end
		}
		end = ls
	}
	return end
}

// lineStart returns the offset of the line holding offset i.
func lineStart(src string, i int) int {
	return strings.LastIndexByte(src[:i], '\n') + 1
}

// inlineItem is one key/value of an inline table.
type inlineItem struct {
	key        []string
	start, end int // offsets of the key start and just past the last key part
}

// explode rewrites an entry holding an inline table as one dotted-key entry
// per item. It reports false when the value is not an inline table.
func explode(e *Entry) ([]*Entry, bool) {
	text := valueLead + e.Value
	p := &unstable.Parser{KeepComments: true}
	p.Reset([]byte(text))
	if !p.NextExpression() {
		return nil, false
	}
	kv := p.Expression()
	if kv.Kind != unstable.KeyValue || kv.Value().Kind != unstable.InlineTable {
		return nil, false
	}

	valueEnd := len(text)
	if c := kv.Next(); c != nil && c.Kind == unstable.Comment {
		valueEnd = int(c.Raw.Offset)
	}
	closing := strings.LastIndexByte(text[:valueEnd], '}')

	var items []inlineItem
	it := kv.Value().Children()
	for it.Next() {
		var item inlineItem
		keys := it.Node().Key()
		for keys.Next() {
			k := keys.Node()
			if item.key == nil {
				item.start = int(k.Raw.Offset)
			}
			item.key = append(item.key, string(k.Data))
			item.end = int(k.Raw.Offset + k.Raw.Length)
		}
		items = append(items, item)
	}

	indent := leadingSpace(e.Prefix)
	out := make([]*Entry, 0, len(items))
	for i, item := range items {
		stop := closing
		if i+1 < len(items) {
			stop = items[i+1].start
		}
		raw := strings.TrimRight(text[item.end:stop], " \t\r\n")
		if i+1 < len(items) {
			raw = strings.TrimRight(strings.TrimSuffix(raw, ","), " \t\r\n")
		}
		value := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "="))

		key := slices.Concat(e.Key, item.key)
		ne := &Entry{Key: key, Prefix: indent + FormatKey(key) + " =", Value: " " + value + "\n"}
		if i == 0 {
			ne.Leading = e.Leading
		}
		if i == len(items)-1 {
			ne.Value = " " + value + text[closing+1:]
		}
		out = append(out, ne)
	}
	return out, true
}

package tomldoc

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
)

var bareKey = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FormatKey renders a dotted key, quoting parts that are not bare.
func FormatKey(path []string) string {
	parts := make([]string, len(path))
	for i, p := range path {
		if bareKey.MatchString(p) {
			parts[i] = p
		} else {
			parts[i] = Quote(p)
		}
	}
	return strings.Join(parts, ".")
}

// Quote renders s as a TOML basic string.
func Quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

// Replace makes the value or table at path in d identical to the one in src.
// A scalar present in both documents is swapped in place; otherwise the old
// subtree is removed and src's statements and sections are inserted where the
// old ones were, or after the last sibling section. Tables d defines through
// dotted keys are extended with dotted keys, and inline tables enclosing path
// are first rewritten as dotted keys.
func (d *Document) Replace(path []string, src *Document) {
	d.ExpandInline(path...)
	if src.Has(path...) {
		// A plain value sitting above path cannot coexist with src's table.
		if b, i := d.enclosing(path); b != nil {
			b.Entries = slices.Delete(b.Entries, i, i+1)
		}
	}
	if dst, ok := d.Lookup(path...); ok {
		if se, ok := src.Lookup(path...); ok && !d.IsTable(path...) && !src.IsTable(path...) {
			dst.Value = se.Value
			return
		}
	}

	// Remove sections under path, remembering where the first one was.
	anchor := -1
	kept := d.Blocks[:0:0]
	for _, b := range d.Blocks {
		if hasPrefix(b.Path, path) {
			if anchor < 0 {
				anchor = len(kept)
			}
			continue
		}
		kept = append(kept, b)
	}
	d.Blocks = kept

	// Remove statements under path, remembering per block where they were.
	entryAnchor := make(map[*Block]int)
	for _, b := range d.all() {
		entries := b.Entries[:0:0]
		for _, e := range b.Entries {
			if hasPrefix(absKey(b, e), path) {
				if _, seen := entryAnchor[b]; !seen {
					entryAnchor[b] = len(entries)
				}
				continue
			}
			entries = append(entries, e)
		}
		b.Entries = entries
	}

	// Copy src statements that live in sections above path.
	for _, sb := range src.all() {
		if sb.Array || (len(sb.Path) > 0 && hasPrefix(sb.Path, path)) {
			continue
		}
		for _, se := range sb.Entries {
			if hasPrefix(absKey(sb, se), path) {
				d.insertEntry(sb.Path, se, entryAnchor, &anchor)
			}
		}
	}

	// Copy src sections under path. Sections of a table d lays out with
	// dotted keys become dotted keys too.
	var copied []*Block
	for _, sb := range src.Blocks {
		if !hasPrefix(sb.Path, path) {
			continue
		}
		if !sb.Array {
			if target, _ := d.owner(sb.Path); target != nil {
				for _, se := range sb.Entries {
					d.insertEntry(sb.Path, se, entryAnchor, &anchor)
				}
				continue
			}
		}
		copied = append(copied, sb.clone())
	}
	if len(copied) > 0 {
		d.insertBlocks(d.insertPosition(path, anchor), copied)
	}
}

// ExpandInline rewrites the inline tables at or enclosing path as dotted
// keys, so statements under path can be edited one at a time. The data the
// document describes is unchanged.
func (d *Document) ExpandInline(path ...string) {
	for d.expandOne(path) {
	}
}

func (d *Document) expandOne(path []string) bool {
	for _, b := range d.all() {
		if b.Array && hasPrefix(path, b.Path) {
			continue
		}
		for i, e := range b.Entries {
			if !hasPrefix(path, absKey(b, e)) {
				continue
			}
			if entries, ok := explode(e); ok {
				b.Entries = slices.Replace(b.Entries, i, i+1, entries...)
				return true
			}
		}
	}
	return false
}

// enclosing returns the entry whose absolute key is a strict prefix of path.
func (d *Document) enclosing(path []string) (*Block, int) {
	for _, b := range d.all() {
		if b.Array && hasPrefix(path, b.Path) {
			continue
		}
		for i, e := range b.Entries {
			if k := absKey(b, e); len(k) < len(path) && hasPrefix(path, k) {
				return b, i
			}
		}
	}
	return nil, -1
}

// owner returns the block holding the statements of table path and the key
// prefix they need there. A table with its own header owns itself. A table
// defined through dotted keys is owned by the deepest block whose dotted
// keys reach into it. Nil means the table needs a new header.
func (d *Document) owner(path []string) (*Block, []string) {
	if b := d.block(path); b != nil && len(path) > 0 {
		return b, nil
	}
	var best *Block
	for _, b := range d.all() {
		if b.Array || len(b.Path) >= len(path) || !hasPrefix(path, b.Path) {
			continue
		}
		if best != nil && len(b.Path) <= len(best.Path) {
			continue
		}
		child := path[:len(b.Path)+1]
		for _, e := range b.Entries {
			if k := absKey(b, e); len(k) > len(child) && hasPrefix(k, child) {
				best = b
				break
			}
		}
	}
	if best == nil {
		if len(path) == 0 {
			return d.Root, nil
		}
		return nil, nil
	}
	return best, slices.Clone(path[len(best.Path):])
}

// insertEntry adds a copy of se, a statement of table, to the block that owns
// table, creating a section when none does.
func (d *Document) insertEntry(table []string, se *Entry, anchors map[*Block]int, anchor *int) {
	target, prefix := d.owner(table)
	if target == nil {
		target = &Block{Path: slices.Clone(table), Header: "[" + FormatKey(table) + "]\n"}
		pos := d.insertPosition(table, -1)
		d.insertBlocks(pos, []*Block{target})
		if *anchor >= pos {
			*anchor++
		}
	}
	ec := *se
	ec.Key = slices.Concat(prefix, se.Key)
	if len(prefix) > 0 {
		// Keep the spacing around "=" from the copied statement.
		key := strings.TrimRight(se.Prefix[:len(se.Prefix)-1], " \t")
		ec.Prefix = leadingSpace(se.Prefix) + FormatKey(ec.Key) + se.Prefix[len(key):]
	}
	if idx, ok := anchors[target]; ok && idx <= len(target.Entries) {
		target.Entries = slices.Insert(target.Entries, idx, &ec)
		anchors[target] = idx + 1
	} else {
		target.Entries = append(target.Entries, &ec)
	}
}

// insertPosition returns where sections for path go: at anchor when known,
// otherwise after the last section sharing path's parent.
func (d *Document) insertPosition(path []string, anchor int) int {
	if anchor >= 0 {
		return anchor
	}
	parent := path
	if len(parent) > 0 {
		parent = parent[:len(parent)-1]
	}
	pos := len(d.Blocks)
	if len(parent) > 0 {
		for i := len(d.Blocks) - 1; i >= 0; i-- {
			if hasPrefix(d.Blocks[i].Path, parent) {
				return i + 1
			}
		}
	}
	return pos
}

// insertBlocks inserts sections at pos, separating the first one from
// preceding content with a blank line.
func (d *Document) insertBlocks(pos int, blocks []*Block) {
	first := blocks[0]
	if (pos > 0 || len(d.Root.Entries) > 0) && !strings.HasPrefix(first.Leading, "\n") {
		first.Leading = "\n" + first.Leading
	}
	d.Blocks = slices.Insert(d.Blocks, pos, blocks...)
}

// StringArray decodes the array of strings at path.
func (d *Document) StringArray(path ...string) ([]string, bool, error) {
	e, ok := d.Lookup(path...)
	if !ok {
		return nil, false, nil
	}
	var v struct {
		V []string `toml:"v"`
	}
	if err := toml.Unmarshal([]byte("v ="+e.Value), &v); err != nil {
		return nil, true, fmt.Errorf("decoding %s: %w", FormatKey(path), err)
	}
	return v.V, true, nil
}

// SetStringArray rewrites the array at path one item per line. A trailing
// comment on the statement is dropped.
func (d *Document) SetStringArray(path []string, items []string) error {
	e, ok := d.Lookup(path...)
	if !ok {
		return fmt.Errorf("%s not found", FormatKey(path))
	}
	indent := leadingSpace(e.Prefix)
	var sb strings.Builder
	sb.WriteString(" [\n")
	for _, item := range items {
		sb.WriteString(indent + "    " + Quote(item) + ",\n")
	}
	sb.WriteString(indent + "]\n")
	e.Value = sb.String()
	return nil
}

// AppendString appends item to the array at path, keeping the array's
// existing layout.
func (d *Document) AppendString(path []string, item string) error {
	e, ok := d.Lookup(path...)
	if !ok {
		return fmt.Errorf("%s not found", FormatKey(path))
	}
	value, err := appendToArray(e.Value, Quote(item), leadingSpace(e.Prefix))
	if err != nil {
		return fmt.Errorf("appending to %s: %w", FormatKey(path), err)
	}
	e.Value = value
	return nil
}

func leadingSpace(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}

// arrayLayout describes the top-level structure of an array of strings.
type arrayLayout struct {
	open, close int  // indices of '[' and the matching ']'
	lastEnd     int  // index just past the last item, -1 when empty
	trailComma  bool // a comma follows the last item
	lastItem    int  // index of the last item, -1 when empty
}

func scanArray(v string) (arrayLayout, error) {
	l := arrayLayout{open: strings.IndexByte(v, '['), lastEnd: -1, lastItem: -1}
	p := &unstable.Parser{KeepComments: true}
	p.Reset([]byte(valueLead + v))
	if !p.NextExpression() {
		if err := p.Error(); err != nil {
			return l, err
		}
		return l, fmt.Errorf("value is not an array")
	}
	kv := p.Expression()
	if kv.Kind != unstable.KeyValue || kv.Value().Kind != unstable.Array {
		return l, fmt.Errorf("value is not an array")
	}
	it := kv.Value().Children()
	for it.Next() {
		n := it.Node()
		switch n.Kind {
		case unstable.Comment:
			continue
		case unstable.String:
		default:
			return l, fmt.Errorf("array holds %s items, not strings", n.Kind)
		}
		l.lastItem = int(n.Raw.Offset) - len(valueLead)
		l.lastEnd = l.lastItem + int(n.Raw.Length)
	}

	// Only blanks, commas and comments separate the last item from ']'.
	pos := l.open + 1
	if l.lastEnd >= 0 {
		pos = l.lastEnd
	}
	for pos < len(v) {
		switch v[pos] {
		case ',':
			l.trailComma = true
		case '#':
			nl := strings.IndexByte(v[pos:], '\n')
			if nl < 0 {
				pos = len(v)
				continue
			}
			pos += nl
		case ']':
			l.close = pos
			return l, nil
		}
		pos++
	}
	return l, fmt.Errorf("unterminated array")
}

// appendToArray inserts quoted as the last item of the array in value.
func appendToArray(value, quoted, baseIndent string) (string, error) {
	l, err := scanArray(value)
	if err != nil {
		return "", err
	}
	body := value[l.open:l.close]
	if !strings.Contains(body, "\n") {
		switch {
		case l.lastEnd < 0:
			return value[:l.open+1] + quoted + value[l.close:], nil
		case l.trailComma:
			return value[:l.close] + " " + quoted + value[l.close:], nil
		default:
			return value[:l.lastEnd] + ", " + quoted + value[l.lastEnd:], nil
		}
	}

	indent := baseIndent + "    "
	if l.lastItem >= 0 {
		if ws := value[lineStart(value, l.lastItem):l.lastItem]; strings.TrimLeft(ws, " \t") == "" {
			indent = ws
		}
	}
	// Insert on its own line before the line holding the closing bracket.
	closeLine := strings.LastIndexByte(value[:l.close], '\n') + 1
	if strings.TrimSpace(value[closeLine:l.close]) != "" {
		closeLine = l.close
	}
	insert := indent + quoted + ",\n"
	if closeLine == l.close && !strings.HasSuffix(value[:l.close], "\n") {
		insert = "\n" + insert
	}
	out := value[:closeLine] + insert + value[closeLine:]
	if l.lastEnd >= 0 && !l.trailComma {
		out = out[:l.lastEnd] + "," + out[l.lastEnd:]
	}
	return out, nil
}

// Package tomldoc is a format-preserving view of a TOML document.
//
// A Document is a flat list of blocks, one per table header, each holding its
// key/value entries as raw text. Comments, blank lines, quoting and spacing
// survive a Parse/String round trip byte for byte. Edits work on absolute key
// paths; a table exists logically when any block or dotted key lives under
// its path.
package tomldoc

import (
	"slices"
	"strings"
)

// Document is a parsed TOML document.
type Document struct {
	// Root holds the key/values that appear before the first header.
	Root *Block
	// Blocks are the table and array-of-tables sections in source order.
	Blocks []*Block
	// Trailing is comment and blank-line text after the last statement.
	Trailing string
}

// Block is one [table] or [[array]] section.
type Block struct {
	Path    []string
	Array   bool
	Leading string // comments and blank lines before the header
	Header  string // raw header line including its newline
	Entries []*Entry
}

// Entry is one key/value statement.
type Entry struct {
	Key     []string // relative to the enclosing block
	Leading string   // comments and blank lines before the statement
	Prefix  string   // indentation, key and "="
	Value   string   // everything after "=", including comment and newline
}

// Raw returns the statement text without its leading trivia.
func (e *Entry) Raw() string {
	return e.Prefix + e.Value
}

func (b *Block) clone() *Block {
	c := *b
	c.Path = slices.Clone(b.Path)
	c.Entries = make([]*Entry, len(b.Entries))
	for i, e := range b.Entries {
		ec := *e
		ec.Key = slices.Clone(e.Key)
		c.Entries[i] = &ec
	}
	return &c
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	c := &Document{Root: d.Root.clone(), Trailing: d.Trailing}
	c.Blocks = make([]*Block, len(d.Blocks))
	for i, b := range d.Blocks {
		c.Blocks[i] = b.clone()
	}
	return c
}

// String serializes the document.
func (d *Document) String() string {
	var sb strings.Builder
	write := func(s string) {
		if s == "" {
			return
		}
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte('\n')
		}
		sb.WriteString(s)
	}
	writeEntries := func(b *Block) {
		for _, e := range b.Entries {
			write(e.Leading)
			write(e.Raw())
		}
	}
	writeEntries(d.Root)
	for _, b := range d.Blocks {
		write(b.Leading)
		write(b.Header)
		writeEntries(b)
	}
	write(d.Trailing)
	return sb.String()
}

// all returns the root block followed by every section.
func (d *Document) all() []*Block {
	return append([]*Block{d.Root}, d.Blocks...)
}

func absKey(b *Block, e *Entry) []string {
	return slices.Concat(b.Path, e.Key)
}

func hasPrefix(path, prefix []string) bool {
	return len(path) >= len(prefix) && slices.Equal(path[:len(prefix)], prefix)
}

// Lookup returns the entry whose absolute key equals path.
func (d *Document) Lookup(path ...string) (*Entry, bool) {
	for _, b := range d.all() {
		if b.Array && hasPrefix(path, b.Path) {
			continue
		}
		for _, e := range b.Entries {
			if slices.Equal(absKey(b, e), path) {
				return e, true
			}
		}
	}
	return nil, false
}

// IsTable reports whether anything is defined strictly below path, or a
// header names path itself.
func (d *Document) IsTable(path ...string) bool {
	for _, b := range d.Blocks {
		if hasPrefix(b.Path, path) {
			return true
		}
	}
	for _, b := range d.all() {
		for _, e := range b.Entries {
			if k := absKey(b, e); len(k) > len(path) && hasPrefix(k, path) {
				return true
			}
		}
	}
	return false
}

// Has reports whether path names a value or a table.
func (d *Document) Has(path ...string) bool {
	if _, ok := d.Lookup(path...); ok {
		return true
	}
	return d.IsTable(path...)
}

// Keys returns the immediate child keys of the table at path in order of
// first appearance.
func (d *Document) Keys(path ...string) []string {
	var keys []string
	add := func(full []string) {
		if len(full) > len(path) && hasPrefix(full, path) && !slices.Contains(keys, full[len(path)]) {
			keys = append(keys, full[len(path)])
		}
	}
	for _, b := range d.all() {
		add(b.Path)
		for _, e := range b.Entries {
			add(absKey(b, e))
		}
	}
	return keys
}

// block returns the plain table block whose path equals path. The root block
// is returned for an empty path.
func (d *Document) block(path []string) *Block {
	if len(path) == 0 {
		return d.Root
	}
	for _, b := range d.Blocks {
		if !b.Array && slices.Equal(b.Path, path) {
			return b
		}
	}
	return nil
}

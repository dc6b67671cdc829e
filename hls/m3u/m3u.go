// Package m3u tokenizes extended m3u playlists into a flat list of tags.
//
// A tag is a line starting with '#'. Its name runs up to the first colon, the
// rest is an attribute list: KEY=VALUE pairs go into Flag (in Keys order) and
// bare values go into Arg. Lines not starting with '#' are URIs and belong to the
// tag before them.
package m3u

import (
	"fmt"
	"strings"
)

type Tag struct {
	Name string
	Flag map[string]Value
	Keys []string
	Arg  []Value
	Line []string
}

// Value returns the attribute value for key. The keys "0" and "1" select
// positional arguments instead. An empty key returns the first argument, or
// the URI if the tag has no arguments.
func (t Tag) Value(key string) string {
	switch key {
	case "", "0":
		if len(t.Arg) > 0 {
			return t.Arg[0].V
		}
		if key == "" {
			return t.URI()
		}
		return ""
	case "1":
		if len(t.Arg) > 1 {
			return t.Arg[1].V
		}
		return ""
	}
	return t.Flag[key].V
}

// Has reports whether the attribute key is present
func (t Tag) Has(key string) bool {
	_, ok := t.Flag[key]
	return ok
}

// URI returns the first line following the tag
func (t Tag) URI() string {
	if len(t.Line) == 0 {
		return ""
	}
	return t.Line[0]
}

// Set sets the attribute key to v. New keys are appended after the
// existing ones.
func (t *Tag) Set(key string, v Value) {
	if t.Flag == nil {
		t.Flag = map[string]Value{}
	}
	if _, ok := t.Flag[key]; !ok {
		t.Keys = append(t.Keys, key)
	}
	t.Flag[key] = v
}

// String returns the tag in m3u form, followed by its lines. It does not
// end in a newline.
func (t Tag) String() string {
	var b strings.Builder
	b.WriteByte('#')
	b.WriteString(t.Name)
	sep := ":"
	for _, v := range t.Arg {
		b.WriteString(sep)
		b.WriteString(v.String())
		sep = ","
	}
	for _, k := range t.Keys {
		b.WriteString(sep)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(t.Flag[k].String())
		sep = ","
	}
	for _, l := range t.Line {
		b.WriteByte('\n')
		b.WriteString(l)
	}
	return b.String()
}

type Value struct {
	V     string
	Quote bool
}

func (v Value) String() string {
	if v.Quote {
		return `"` + v.V + `"`
	}
	return v.V
}

// SyntaxError reports a line the lexer could not tokenize
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("m3u: line %d: %s", e.Line, e.Msg)
}

package m3u

import (
	"bufio"
	"io"
	"strings"
)

// MaxLine is the longest line the lexer accepts, in bytes
const MaxLine = 1 << 20

func Parse(r io.Reader) (t []Tag, err error) {
	return newlex(r).Parse()
}

type lex struct {
	sc   *bufio.Scanner
	line int
}

func newlex(r io.Reader) *lex {
	l := &lex{}
	l.reset(r)
	return l
}

func (l *lex) reset(r io.Reader) {
	l.sc = bufio.NewScanner(r)
	l.sc.Buffer(make([]byte, 0, 4096), MaxLine)
	l.line = 0
}

func (l *lex) Parse() (t []Tag, err error) {
	for l.sc.Scan() {
		l.line++
		s := strings.TrimSpace(l.sc.Text())
		if l.line == 1 {
			s = strings.TrimPrefix(s, "\ufeff")
		}
		switch {
		case s == "":
		case s[0] == '#':
			t = append(t, lexTag(s[1:]))
		case len(t) == 0:
			return t, &SyntaxError{Line: l.line, Msg: "uri before the first tag"}
		default:
			t[len(t)-1].Line = append(t[len(t)-1].Line, s)
		}
	}
	if err = l.sc.Err(); err == bufio.ErrTooLong {
		return t, &SyntaxError{Line: l.line + 1, Msg: "line too long"}
	}
	return t, err
}

func lexTag(s string) Tag {
	name, list, ok := strings.Cut(s, ":")
	t := Tag{Name: name}
	if !ok {
		return t
	}
	keyless := false
	for _, item := range split(list) {
		if !keyless {
			if key, v, ok := lexAttr(item); ok {
				t.Set(key, v)
				continue
			}
			// after we encounter the first keyless field, stop looking
			// for equal signs, since they might be part of a title or
			// of base64 padding
			keyless = true
		}
		t.Arg = append(t.Arg, Value{V: item})
	}
	return t
}

// split splits the attribute list on commas that are not quoted
func split(s string) (a []string) {
	quote := false
	i := 0
	for j := 0; j < len(s); j++ {
		switch s[j] {
		case '"':
			quote = !quote
		case ',':
			if !quote {
				a = append(a, s[i:j])
				i = j + 1
			}
		}
	}
	return append(a, s[i:])
}

func lexAttr(item string) (key string, v Value, ok bool) {
	key, val, ok := strings.Cut(item, "=")
	if !ok || !isName(key) {
		return "", v, false
	}
	if n := len(val); n >= 2 && val[0] == '"' && val[n-1] == '"' {
		return key, Value{V: val[1 : n-1], Quote: true}, true
	}
	return key, Value{V: val}, true
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

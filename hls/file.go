package hls

import (
	"fmt"
	"strings"
	"time"

	"github.com/as/hlsfilter/hls/m3u"
)

// TimeFormat is the layout of EXT-X-PROGRAM-DATE-TIME on output
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// File is an HLS segment in a media playlist and all of its associated tags
type File struct {
	Discontinuous bool      `json:",omitempty"`
	Gap           bool      `json:",omitempty"`
	Time          time.Time `json:",omitempty"`
	Range         Range     `json:",omitempty"`
	Map           Map       `json:",omitempty"`
	Key           Key       `json:",omitempty"`

	// Extra holds the segment's tags with no typed field, in input order.
	// Cue markers, date ranges and partial segments are kept here.
	Extra []m3u.Tag `json:",omitempty"`
	Inf   Inf       `json:",omitempty"`
}

// sticky returns a copy of f with only sticky field set
// a sticky field is a field that propagates across Inf blocks
func (f File) sticky() File {
	return File{
		Map: f.Map,
		Key: f.Key,
	}
}

func (f *File) decodetag(t m3u.Tag) (err error) {
	switch t.Name {
	case "EXTINF":
		err = f.Inf.decodetag(t)
	case "EXT-X-DISCONTINUITY":
		f.Discontinuous = true
	case "EXT-X-GAP":
		f.Gap = true
	case "EXT-X-PROGRAM-DATE-TIME":
		if f.Time, err = time.Parse(time.RFC3339Nano, t.Value("0")); err != nil {
			err = fmt.Errorf("hls: EXT-X-PROGRAM-DATE-TIME: %w", err)
		}
	case "EXT-X-BYTERANGE":
		f.Range = Range{V: t.Value("0")}
	case "EXT-X-MAP":
		f.Map = Map{URI: t.Value("URI"), Byterange: t.Value("BYTERANGE")}
	case "EXT-X-KEY":
		f.Key = Key{
			Method:   t.Value("METHOD"),
			URI:      t.Value("URI"),
			IV:       t.Value("IV"),
			Format:   t.Value("KEYFORMAT"),
			Versions: t.Value("KEYFORMATVERSIONS"),
		}
	default:
		t.Line = nil
		f.Extra = append(f.Extra, t)
	}
	return err
}

// tags encodes f. Keys and maps are written only when they differ
// from the ones in effect for prev.
func (f File) tags(prev File) (t []m3u.Tag) {
	if f.Discontinuous {
		t = append(t, m3u.Tag{Name: "EXT-X-DISCONTINUITY"})
	}
	if f.Key != prev.Key {
		t = append(t, f.Key.tag())
	}
	if f.Map != prev.Map && f.Map != (Map{}) {
		t = append(t, f.Map.tag())
	}
	if !f.Time.IsZero() {
		t = append(t, m3u.Tag{Name: "EXT-X-PROGRAM-DATE-TIME", Arg: []m3u.Value{{V: f.Time.Format(TimeFormat)}}})
	}
	t = append(t, f.Extra...)
	if f.Gap {
		t = append(t, m3u.Tag{Name: "EXT-X-GAP"})
	}
	if f.Range.V != "" {
		t = append(t, m3u.Tag{Name: "EXT-X-BYTERANGE", Arg: []m3u.Value{{V: f.Range.V}}})
	}
	return append(t, f.Inf.tag())
}

type Key struct {
	Method   string `json:",omitempty"`
	URI      string `json:",omitempty"`
	IV       string `json:",omitempty"`
	Format   string `json:",omitempty"`
	Versions string `json:",omitempty"`
}

func (k Key) tag() m3u.Tag {
	t := m3u.Tag{Name: "EXT-X-KEY"}
	if k.Method == "" {
		k.Method = "NONE"
	}
	setn(&t, "METHOD", k.Method)
	setq(&t, "URI", k.URI)
	setn(&t, "IV", k.IV)
	setq(&t, "KEYFORMAT", k.Format)
	setq(&t, "KEYFORMATVERSIONS", k.Versions)
	return t
}

type Map struct {
	URI       string `json:",omitempty"`
	Byterange string `json:",omitempty"`
}

func (m Map) tag() m3u.Tag {
	t := m3u.Tag{Name: "EXT-X-MAP"}
	setq(&t, "URI", m.URI)
	setq(&t, "BYTERANGE", m.Byterange)
	return t
}

type Start struct {
	Offset  time.Duration `json:",omitempty"`
	Precise bool          `json:",omitempty"`
}

func (s *Start) decodetag(t m3u.Tag) (err error) {
	if s.Offset, err = seconds(t.Value("TIME-OFFSET")); err != nil {
		return fmt.Errorf("hls: EXT-X-START: bad TIME-OFFSET %q", t.Value("TIME-OFFSET"))
	}
	s.Precise = yes(t.Value("PRECISE"))
	return nil
}

func (s Start) tag() m3u.Tag {
	t := m3u.Tag{Name: "EXT-X-START"}
	t.Set("TIME-OFFSET", m3u.Value{V: fmtSeconds(s.Offset)})
	setbool(&t, "PRECISE", s.Precise)
	return t
}

type Inf struct {
	Duration    time.Duration `json:",omitempty"`
	Description string        `json:",omitempty"`

	URL string `json:",omitempty"`
}

func (h *Inf) decodetag(t m3u.Tag) error {
	d, err := seconds(t.Value("0"))
	if err != nil || d < 0 {
		return fmt.Errorf("hls: EXTINF: bad duration %q", t.Value("0"))
	}
	h.Duration = d
	// titles may contain commas
	if len(t.Arg) > 1 {
		title := make([]string, 0, len(t.Arg)-1)
		for _, a := range t.Arg[1:] {
			title = append(title, a.V)
		}
		h.Description = strings.Join(title, ",")
	}
	return nil
}

func (h Inf) tag() m3u.Tag {
	return m3u.Tag{
		Name: "EXTINF",
		Arg:  []m3u.Value{{V: fmtSeconds(h.Duration)}, {V: h.Description}},
		Line: []string{h.URL},
	}
}

type Range struct {
	V string `json:",omitempty"`
}

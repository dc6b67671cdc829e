package hls

import (
	"io"
	"strconv"
	"time"

	"github.com/as/hlsfilter/hls/m3u"
)

// Media is a media playlist. It consists of a header and zero or more files. A file
// is EXTINF and the content of any additional tags that apply to that EXTINF tag.
type Media struct {
	MediaHeader
	File []File `json:",omitempty"`

	// Trailer holds the tags after the last segment URI, such as
	// preload hints and rendition reports.
	Trailer []m3u.Tag `json:",omitempty"`

	URL string `json:",omitempty"`
}

type MediaHeader struct {
	M3U           bool          `json:",omitempty"`
	Version       int           `json:",omitempty"`
	Independent   bool          `json:",omitempty"`
	Type          string        `json:",omitempty"`
	Target        time.Duration `json:",omitempty"`
	Start         Start         `json:",omitempty"`
	Sequence      int           `json:",omitempty"`
	Discontinuity int           `json:",omitempty"`
	IFramesOnly   bool          `json:",omitempty"`
	End           bool          `json:",omitempty"`

	// Extra holds playlist-wide tags with no typed field, in input order
	Extra []m3u.Tag `json:",omitempty"`
}

// playlist-wide tags passed through as MediaHeader.Extra
var headerExtra = map[string]bool{
	"EXT-X-SERVER-CONTROL": true,
	"EXT-X-PART-INF":       true,
	"EXT-X-DEFINE":         true,
	"EXT-X-ALLOW-CACHE":    true,
	"EXT-X-SKIP":           true,
}

// decodetag stores t in the header and reports whether it was a header tag
func (h *MediaHeader) decodetag(t m3u.Tag) (ok bool, err error) {
	switch t.Name {
	case "EXTM3U":
		h.M3U = true
	case "EXT-X-VERSION":
		h.Version = atoi(t.Value("0"))
	case "EXT-X-INDEPENDENT-SEGMENTS":
		h.Independent = true
	case "EXT-X-PLAYLIST-TYPE":
		h.Type = t.Value("0")
	case "EXT-X-TARGETDURATION":
		h.Target, err = seconds(t.Value("0"))
	case "EXT-X-START":
		err = h.Start.decodetag(t)
	case "EXT-X-MEDIA-SEQUENCE":
		h.Sequence = atoi(t.Value("0"))
	case "EXT-X-DISCONTINUITY-SEQUENCE":
		h.Discontinuity = atoi(t.Value("0"))
	case "EXT-X-I-FRAMES-ONLY":
		h.IFramesOnly = true
	case "EXT-X-ENDLIST":
		h.End = true
	default:
		if !headerExtra[t.Name] {
			return false, nil
		}
		h.Extra = append(h.Extra, t)
	}
	return true, err
}

func (h MediaHeader) tags() (t []m3u.Tag) {
	arg := func(name, v string) m3u.Tag {
		return m3u.Tag{Name: name, Arg: []m3u.Value{{V: v}}}
	}
	t = append(t, m3u.Tag{Name: "EXTM3U"})
	if h.Version != 0 {
		t = append(t, arg("EXT-X-VERSION", strconv.Itoa(h.Version)))
	}
	if h.Independent {
		t = append(t, m3u.Tag{Name: "EXT-X-INDEPENDENT-SEGMENTS"})
	}
	if h.Type != "" {
		t = append(t, arg("EXT-X-PLAYLIST-TYPE", h.Type))
	}
	if h.Target != 0 {
		t = append(t, arg("EXT-X-TARGETDURATION", fmtSeconds(h.Target)))
	}
	if h.Start != (Start{}) {
		t = append(t, h.Start.tag())
	}
	if h.Sequence != 0 {
		t = append(t, arg("EXT-X-MEDIA-SEQUENCE", strconv.Itoa(h.Sequence)))
	}
	if h.Discontinuity != 0 {
		t = append(t, arg("EXT-X-DISCONTINUITY-SEQUENCE", strconv.Itoa(h.Discontinuity)))
	}
	if h.IFramesOnly {
		t = append(t, m3u.Tag{Name: "EXT-X-I-FRAMES-ONLY"})
	}
	return append(t, h.Extra...)
}

// Decode decodes the playlist in r and stores the
// result in m. A media playlist without segments is valid.
func (m *Media) Decode(r io.Reader) error {
	t, master, err := Decode(r)
	if err != nil {
		return err
	}
	if master {
		return ErrNotMedia
	}
	return m.DecodeTag(t...)
}

// DecodeTag decodes the list of tags as a media playlist
func (m *Media) DecodeTag(t ...m3u.Tag) error {
	file := File{}
	var pending []m3u.Tag
	for _, t := range t {
		ok, err := m.MediaHeader.decodetag(t)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if err := file.decodetag(t); err != nil {
			return err
		}
		pending = append(pending, t)
		if u := t.URI(); u != "" {
			file.Inf.URL = u
			m.File = append(m.File, file)
			file = file.sticky()
			pending = pending[:0]
		}
	}
	if len(pending) > 0 {
		m.Trailer = append([]m3u.Tag(nil), pending...)
	}
	if !m.M3U {
		return ErrHeader
	}
	return nil
}

func (m Media) Encode(w io.Writer) error {
	return writeplaylist(w, m.EncodeTag())
}

func (m Media) EncodeTag() (t []m3u.Tag) {
	t = m.MediaHeader.tags()
	prev := File{}
	for _, f := range m.File {
		t = append(t, f.tags(prev)...)
		prev = f
	}
	t = append(t, m.Trailer...)
	if m.End {
		t = append(t, m3u.Tag{Name: "EXT-X-ENDLIST"})
	}
	return t
}

// Len returns the number of segments visibile to the playlist
func (m *Media) Len() int {
	return len(m.File)
}

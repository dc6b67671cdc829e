package hls

import (
	"fmt"
	"image"
	"io"
	"strconv"

	"github.com/as/hlsfilter/hls/m3u"
)

// Master is a master playlist. It contains a list of streams (variants) and
// media information associated by group id. By convention, the master playlist is immutable.
type Master struct {
	M3U         bool         `json:",omitempty"`
	Version     int          `json:",omitempty"`
	Independent bool         `json:",omitempty"`
	Start       Start        `json:",omitempty"`
	Steering    Steering     `json:",omitempty"`
	Media       []MediaInfo  `json:",omitempty"`
	Stream      []StreamInfo `json:",omitempty"`
	IFrame      []StreamInfo `json:",omitempty"`

	// Extra holds tags with no typed field, in input order. Session data,
	// session keys and variable definitions end up here.
	Extra []m3u.Tag `json:",omitempty"`

	URL string `json:",omitempty"`
}

// Decode decodes the master playlist into m.
func (m *Master) Decode(r io.Reader) error {
	t, master, err := Decode(r)
	if err != nil {
		return err
	}
	if !master {
		return ErrNotMaster
	}
	return m.DecodeTag(t...)
}

func (m *Master) DecodeTag(t ...m3u.Tag) error {
	for _, t := range t {
		switch t.Name {
		case "EXTM3U":
			m.M3U = true
		case "EXT-X-VERSION":
			m.Version = atoi(t.Value("0"))
		case "EXT-X-INDEPENDENT-SEGMENTS":
			m.Independent = true
		case "EXT-X-START":
			if err := m.Start.decodetag(t); err != nil {
				return err
			}
		case "EXT-X-CONTENT-STEERING":
			m.Steering.decodetag(t)
		case "EXT-X-MEDIA":
			v := MediaInfo{}
			v.decodetag(t)
			m.Media = append(m.Media, v)
		case "EXT-X-STREAM-INF":
			v := StreamInfo{}
			if err := v.decodetag(t); err != nil {
				return err
			}
			v.URL = t.URI()
			m.Stream = append(m.Stream, v)
		case "EXT-X-I-FRAME-STREAM-INF":
			v := StreamInfo{}
			if err := v.decodetag(t); err != nil {
				return err
			}
			m.IFrame = append(m.IFrame, v)
		default:
			m.Extra = append(m.Extra, t)
		}
	}
	if !m.M3U {
		return ErrHeader
	}
	if len(m.Stream) == 0 {
		return ErrEmpty
	}
	return nil
}

// Encode encodes the master
func (m Master) Encode(w io.Writer) error {
	return writeplaylist(w, m.EncodeTag())
}

func (m Master) EncodeTag() (t []m3u.Tag) {
	t = append(t, m3u.Tag{Name: "EXTM3U"})
	if m.Version != 0 {
		t = append(t, m3u.Tag{Name: "EXT-X-VERSION", Arg: []m3u.Value{{V: strconv.Itoa(m.Version)}}})
	}
	if m.Independent {
		t = append(t, m3u.Tag{Name: "EXT-X-INDEPENDENT-SEGMENTS"})
	}
	if m.Start != (Start{}) {
		t = append(t, m.Start.tag())
	}
	if m.Steering != (Steering{}) {
		t = append(t, m.Steering.tag())
	}
	t = append(t, m.Extra...)
	for _, v := range m.Media {
		t = append(t, v.tag())
	}
	for _, v := range m.Stream {
		tag := v.tag("EXT-X-STREAM-INF")
		tag.Line = []string{v.URL}
		t = append(t, tag)
	}
	for _, v := range m.IFrame {
		t = append(t, v.tag("EXT-X-I-FRAME-STREAM-INF"))
	}
	return t
}

// Len returns the number of variant streams
func (m *Master) Len() int {
	return len(m.Stream)
}

type Steering struct {
	URI     string `json:",omitempty"`
	Pathway string `json:",omitempty"`
}

func (s *Steering) decodetag(t m3u.Tag) {
	s.URI = t.Value("SERVER-URI")
	s.Pathway = t.Value("PATHWAY-ID")
}

func (s Steering) tag() m3u.Tag {
	t := m3u.Tag{Name: "EXT-X-CONTENT-STEERING"}
	setq(&t, "SERVER-URI", s.URI)
	setq(&t, "PATHWAY-ID", s.Pathway)
	return t
}

type MediaInfo struct {
	Type       string   `json:",omitempty"`
	Group      string   `json:",omitempty"`
	Name       string   `json:",omitempty"`
	StableID   string   `json:",omitempty"`
	Default    bool     `json:",omitempty"`
	Autoselect bool     `json:",omitempty"`
	Forced     bool     `json:",omitempty"`
	Character  []string `json:",omitempty"`
	Lang       string   `json:",omitempty"`
	AssocLang  string   `json:",omitempty"`
	Instream   string   `json:",omitempty"`
	Bitdepth   int      `json:",omitempty"`
	Samplerate int      `json:",omitempty"`
	Channels   string   `json:",omitempty"`
	URI        string   `json:",omitempty"`

	Extra map[string]m3u.Value `json:",omitempty"`
}

func (v *MediaInfo) decodetag(t m3u.Tag) {
	for _, k := range t.Keys {
		a := t.Flag[k]
		switch k {
		case "TYPE":
			v.Type = a.V
		case "GROUP-ID":
			v.Group = a.V
		case "NAME":
			v.Name = a.V
		case "STABLE-RENDITION-ID":
			v.StableID = a.V
		case "DEFAULT":
			v.Default = yes(a.V)
		case "AUTOSELECT":
			v.Autoselect = yes(a.V)
		case "FORCED":
			v.Forced = yes(a.V)
		case "CHARACTERISTICS":
			v.Character = list(a.V)
		case "LANGUAGE":
			v.Lang = a.V
		case "ASSOC-LANGUAGE":
			v.AssocLang = a.V
		case "INSTREAM-ID":
			v.Instream = a.V
		case "BIT-DEPTH":
			v.Bitdepth = atoi(a.V)
		case "SAMPLE-RATE":
			v.Samplerate = atoi(a.V)
		case "CHANNELS":
			v.Channels = a.V
		case "URI":
			v.URI = a.V
		default:
			addExtra(&v.Extra, k, a)
		}
	}
}

func (v MediaInfo) tag() m3u.Tag {
	t := m3u.Tag{Name: "EXT-X-MEDIA"}
	setn(&t, "TYPE", v.Type)
	setq(&t, "GROUP-ID", v.Group)
	setq(&t, "NAME", v.Name)
	setq(&t, "LANGUAGE", v.Lang)
	setq(&t, "ASSOC-LANGUAGE", v.AssocLang)
	setq(&t, "STABLE-RENDITION-ID", v.StableID)
	setbool(&t, "DEFAULT", v.Default)
	setbool(&t, "AUTOSELECT", v.Autoselect)
	setbool(&t, "FORCED", v.Forced)
	setq(&t, "INSTREAM-ID", v.Instream)
	setint(&t, "BIT-DEPTH", v.Bitdepth)
	setint(&t, "SAMPLE-RATE", v.Samplerate)
	setlist(&t, "CHARACTERISTICS", v.Character)
	setq(&t, "CHANNELS", v.Channels)
	setq(&t, "URI", v.URI)
	setExtra(&t, v.Extra)
	return t
}

// StreamInfo is a variant stream (rendition). Bandwidth is required, a nil
// Framerate means the attribute is absent.
type StreamInfo struct {
	URL string `json:",omitempty"`

	Index        int         `json:",omitempty"`
	Framerate    *float64    `json:",omitempty"`
	Bandwidth    int         `json:",omitempty"`
	BandwidthAvg int         `json:",omitempty"`
	Codecs       []string    `json:",omitempty"`
	Resolution   image.Point `json:",omitempty"`
	VideoRange   string      `json:",omitempty"`
	HDCP         string      `json:",omitempty"`

	Audio    string `json:",omitempty"`
	Video    string `json:",omitempty"`
	Subtitle string `json:",omitempty"`
	Pathway  string `json:",omitempty"`

	// Caption is unquoted if the value is NONE
	Caption string `json:",omitempty"`

	// URI is only set in IFrame stream infos
	URI string `json:",omitempty"`

	Extra map[string]m3u.Value `json:",omitempty"`
}

func (s *StreamInfo) decodetag(t m3u.Tag) error {
	if !t.Has("BANDWIDTH") {
		return fmt.Errorf("hls: %s: missing BANDWIDTH", t.Name)
	}
	for _, k := range t.Keys {
		a := t.Flag[k]
		switch k {
		case "BANDWIDTH":
			n, err := strconv.Atoi(a.V)
			if err != nil || n < 0 {
				return fmt.Errorf("hls: %s: bad BANDWIDTH %q", t.Name, a.V)
			}
			s.Bandwidth = n
		case "AVERAGE-BANDWIDTH":
			s.BandwidthAvg = atoi(a.V)
		case "PROGRAM-ID":
			s.Index = atoi(a.V)
		case "FRAME-RATE":
			f := atof(a.V)
			s.Framerate = &f
		case "CODECS":
			s.Codecs = list(a.V)
		case "RESOLUTION":
			s.Resolution = resolution(a.V)
		case "VIDEO-RANGE":
			s.VideoRange = a.V
		case "HDCP-LEVEL":
			s.HDCP = a.V
		case "AUDIO":
			s.Audio = a.V
		case "VIDEO":
			s.Video = a.V
		case "SUBTITLES":
			s.Subtitle = a.V
		case "CLOSED-CAPTIONS":
			s.Caption = a.V
		case "PATHWAY-ID":
			s.Pathway = a.V
		case "URI":
			s.URI = a.V
		default:
			addExtra(&s.Extra, k, a)
		}
	}
	return nil
}

func (s StreamInfo) tag(name string) m3u.Tag {
	t := m3u.Tag{Name: name}
	setint(&t, "PROGRAM-ID", s.Index)
	t.Set("BANDWIDTH", m3u.Value{V: strconv.Itoa(s.Bandwidth)})
	setint(&t, "AVERAGE-BANDWIDTH", s.BandwidthAvg)
	setlist(&t, "CODECS", s.Codecs)
	if s.Resolution != (image.Point{}) {
		setn(&t, "RESOLUTION", fmt.Sprintf("%dx%d", s.Resolution.X, s.Resolution.Y))
	}
	if s.Framerate != nil {
		setn(&t, "FRAME-RATE", strconv.FormatFloat(*s.Framerate, 'f', 3, 64))
	}
	setn(&t, "HDCP-LEVEL", s.HDCP)
	setn(&t, "VIDEO-RANGE", s.VideoRange)
	setq(&t, "AUDIO", s.Audio)
	setq(&t, "VIDEO", s.Video)
	setq(&t, "SUBTITLES", s.Subtitle)
	if s.Caption == "NONE" {
		setn(&t, "CLOSED-CAPTIONS", s.Caption)
	} else {
		setq(&t, "CLOSED-CAPTIONS", s.Caption)
	}
	setq(&t, "PATHWAY-ID", s.Pathway)
	setq(&t, "URI", s.URI)
	setExtra(&t, s.Extra)
	return t
}

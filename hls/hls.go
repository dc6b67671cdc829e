// Package hls implements an HLS codec for Master and Media playlists in m3u format.
//
// Decoding keeps every tag and attribute the package does not model, so a
// playlist written back with Encode carries them unchanged.
package hls

import (
	"bufio"
	"errors"
	"io"
	"time"

	"github.com/as/hlsfilter/hls/m3u"
)

// Media playlist types
const (
	Vod   = "VOD"   // immutable
	Event = "EVENT" // append-only
	Live  = ""      // sliding-window
)

var (
	ErrHeader    = errors.New("hls: no m3u8 tag")
	ErrEmpty     = errors.New("hls: empty playlist")
	ErrNotMaster = errors.New("must be a master playlist")
	ErrNotMedia  = errors.New("must be a media playlist")
)

// Playlist is a decoded *Master or *Media
type Playlist interface {
	Encode(w io.Writer) error
	Len() int
}

// Decode reads an HLS playlist from the reader and tokenizes
// it into a list of tags. Master is true if and only if the input looks
// like a master playlist.
func Decode(r io.Reader) (t []m3u.Tag, master bool, err error) {
	t, err = m3u.Parse(r)
	for _, v := range t {
		switch v.Name {
		case "EXT-X-MEDIA", "EXT-X-STREAM-INF", "EXT-X-I-FRAME-STREAM-INF":
			return t, true, err
		case "EXTINF", "EXT-X-TARGETDURATION", "EXT-X-MEDIA-SEQUENCE":
			return t, false, err
		}
	}
	// may be empty live media
	return t, false, err
}

// Parse decodes the playlist in r as whichever kind it looks like
func Parse(r io.Reader) (Playlist, error) {
	t, master, err := Decode(r)
	if err != nil {
		return nil, err
	}
	if master {
		m := &Master{}
		if err := m.DecodeTag(t...); err != nil {
			return nil, err
		}
		return m, nil
	}
	m := &Media{}
	if err := m.DecodeTag(t...); err != nil {
		return nil, err
	}
	return m, nil
}

// Runtime measures the cumulative duration of the given
// window of segments (files)
func Runtime(f ...File) (cumulative time.Duration) {
	for _, f := range f {
		cumulative += f.Inf.Duration
	}
	return
}

func writeplaylist(w io.Writer, tags []m3u.Tag) error {
	bw := bufio.NewWriter(w)
	for _, t := range tags {
		bw.WriteString(t.String())
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

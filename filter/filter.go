// Package filter transforms decoded playlists. Master playlists are filtered
// and reordered by rendition attributes, media playlists are cut down to a
// trailing window or an index range.
//
// Every function takes its playlist by value and returns a new one. The input's
// slices are never modified, so a caller may keep the original around. Optional
// arguments are pointers and a nil pointer leaves the playlist as it is.
package filter

import (
	"time"

	"github.com/as/hlsfilter/hls"
)

// MasterOptions selects the master playlist transforms to apply
type MasterOptions struct {
	MinBandwidth     *int     `json:"min_bandwidth,omitempty" yaml:"min_bandwidth,omitempty"`
	MaxBandwidth     *int     `json:"max_bandwidth,omitempty" yaml:"max_bandwidth,omitempty"`
	FrameRate        *float64 `json:"frame_rate,omitempty" yaml:"frame_rate,omitempty"`
	FirstIndex       *int     `json:"first_index,omitempty" yaml:"first_index,omitempty"`
	ClosestBandwidth *int     `json:"closest_bandwidth,omitempty" yaml:"closest_bandwidth,omitempty"`
}

// Apply runs the bandwidth filter, the frame rate filter, promotion by index
// and promotion by closest bandwidth, in that order.
func (o MasterOptions) Apply(m hls.Master) hls.Master {
	m = Bandwidth(m, o.MinBandwidth, o.MaxBandwidth)
	m = FrameRate(m, o.FrameRate)
	m = FirstByIndex(m, o.FirstIndex)
	return FirstByClosestBandwidth(m, o.ClosestBandwidth)
}

// IsZero reports whether no option is set
func (o MasterOptions) IsZero() bool {
	return o == MasterOptions{}
}

// Or returns o with its unset options taken from d
func (o MasterOptions) Or(d MasterOptions) MasterOptions {
	or(&o.MinBandwidth, d.MinBandwidth)
	or(&o.MaxBandwidth, d.MaxBandwidth)
	or(&o.FrameRate, d.FrameRate)
	or(&o.FirstIndex, d.FirstIndex)
	or(&o.ClosestBandwidth, d.ClosestBandwidth)
	return o
}

// MediaOptions selects the media playlist transforms to apply
type MediaOptions struct {
	Window    *time.Duration `json:"window,omitempty" yaml:"window,omitempty"`
	TrimStart *int           `json:"trim_start,omitempty" yaml:"trim_start,omitempty"`
	TrimEnd   *int           `json:"trim_end,omitempty" yaml:"trim_end,omitempty"`
}

// Apply runs the trailing window and then the range trim. The trim bounds
// refer to the segments left by the window.
func (o MediaOptions) Apply(m hls.Media) (hls.Media, error) {
	m = Window(m, o.Window)
	return Trim(m, o.TrimStart, o.TrimEnd)
}

// IsZero reports whether no option is set
func (o MediaOptions) IsZero() bool {
	return o == MediaOptions{}
}

// Or returns o with its unset options taken from d
func (o MediaOptions) Or(d MediaOptions) MediaOptions {
	or(&o.Window, d.Window)
	or(&o.TrimStart, d.TrimStart)
	or(&o.TrimEnd, d.TrimEnd)
	return o
}

func or[T any](v **T, d *T) {
	if *v == nil {
		*v = d
	}
}

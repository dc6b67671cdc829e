package filter

import (
	"time"

	"github.com/as/hlsfilter/hls"
)

// Window keeps the longest run of trailing segments whose durations add up
// to no more than d. A segment that brings the sum to exactly d is kept.
func Window(m hls.Media, d *time.Duration) hls.Media {
	if d == nil {
		return m
	}
	var sum time.Duration
	i := len(m.File)
	for ; i > 0; i-- {
		sum += m.File[i-1].Inf.Duration
		if sum > *d {
			break
		}
	}
	return slice(m, i, len(m.File))
}

// Trim keeps the segments in [start, end). A nil start means 0 and a nil
// end means the number of segments. Bounds outside the segment list return
// a *RangeError and m unchanged.
func Trim(m hls.Media, start, end *int) (hls.Media, error) {
	if start == nil && end == nil {
		return m, nil
	}
	i, j := 0, len(m.File)
	if start != nil {
		i = *start
	}
	if end != nil {
		j = *end
	}
	if i < 0 || i > j || j > len(m.File) {
		return m, &RangeError{Start: i, End: j, Len: len(m.File)}
	}
	return slice(m, i, j), nil
}

// slice keeps m.File[i:j]. The media sequence advances by the i segments
// removed from the front and the discontinuity sequence by the
// discontinuities among them.
func slice(m hls.Media, i, j int) hls.Media {
	for _, f := range m.File[:i] {
		if f.Discontinuous {
			m.Discontinuity++
		}
	}
	m.Sequence += i
	m.File = clone(m.File[i:j])
	return m
}

package filter

import (
	"math"

	"github.com/as/hlsfilter/hls"
)

// FrameRate keeps the variant streams whose frame rate equals rate exactly.
// Streams without a FRAME-RATE attribute never match.
func FrameRate(m hls.Master, rate *float64) hls.Master {
	if rate == nil {
		return m
	}
	return keep(m, func(s hls.StreamInfo) bool {
		return s.Framerate != nil && *s.Framerate == *rate
	})
}

// Bandwidth keeps the variant streams with min <= BANDWIDTH <= max. A nil
// min means zero and a nil max means no upper bound.
func Bandwidth(m hls.Master, min, max *int) hls.Master {
	if min == nil && max == nil {
		return m
	}
	lo, hi := 0, math.MaxInt
	if min != nil {
		lo = *min
	}
	if max != nil {
		hi = *max
	}
	return keep(m, func(s hls.StreamInfo) bool {
		return lo <= s.Bandwidth && s.Bandwidth <= hi
	})
}

// FirstByIndex swaps the first variant stream with the one at index. An
// index outside the stream list does nothing.
func FirstByIndex(m hls.Master, index *int) hls.Master {
	if index == nil || *index <= 0 || *index >= len(m.Stream) {
		return m
	}
	s := clone(m.Stream)
	s[0], s[*index] = s[*index], s[0]
	m.Stream = s
	return m
}

// FirstByClosestBandwidth moves the variant stream with the bandwidth closest
// to target to the front. The streams before it shift back by one. On a tie
// the earliest stream wins.
func FirstByClosestBandwidth(m hls.Master, target *int) hls.Master {
	if target == nil || len(m.Stream) == 0 {
		return m
	}
	best := 0
	for i, s := range m.Stream {
		if distance(*target, s.Bandwidth) < distance(*target, m.Stream[best].Bandwidth) {
			best = i
		}
	}
	if best == 0 {
		return m
	}
	s := make([]hls.StreamInfo, 0, len(m.Stream))
	s = append(s, m.Stream[best])
	s = append(s, m.Stream[:best]...)
	s = append(s, m.Stream[best+1:]...)
	m.Stream = s
	return m
}

func keep(m hls.Master, fn func(hls.StreamInfo) bool) hls.Master {
	s := make([]hls.StreamInfo, 0, len(m.Stream))
	for _, v := range m.Stream {
		if fn(v) {
			s = append(s, v)
		}
	}
	m.Stream = s
	return m
}

func distance(a, b int) uint64 {
	if a > b {
		return uint64(a) - uint64(b)
	}
	return uint64(b) - uint64(a)
}

func clone[T any](s []T) []T {
	return append([]T(nil), s...)
}

package api

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/as/hlsfilter/filter"
)

// Query parameters
const (
	ParamMinBitrate       = "min_bitrate"
	ParamMaxBitrate       = "max_bitrate"
	ParamRate             = "rate"
	ParamVariantIndex     = "variant_index"
	ParamClosestBandwidth = "closest_bandwidth"
	ParamDVR              = "dvr"
	ParamTrimStart        = "trim_start"
	ParamTrimEnd          = "trim_end"
)

// MasterQuery reads master playlist options from q. Absent or empty
// parameters leave the option unset.
func MasterQuery(q url.Values) (o filter.MasterOptions, err error) {
	p := params{q: q}
	o.MinBandwidth = p.num(ParamMinBitrate)
	o.MaxBandwidth = p.num(ParamMaxBitrate)
	o.FrameRate = p.float(ParamRate)
	o.FirstIndex = p.num(ParamVariantIndex)
	o.ClosestBandwidth = p.num(ParamClosestBandwidth)
	return o, p.err
}

// MediaQuery reads media playlist options from q. The dvr window is given
// in decimal seconds.
func MediaQuery(q url.Values) (o filter.MediaOptions, err error) {
	p := params{q: q}
	if s := p.float(ParamDVR); s != nil {
		if *s < 0 || *s > math.MaxInt64/float64(time.Second) {
			p.fail(ParamDVR, q.Get(ParamDVR), fmt.Errorf("out of range"))
		} else {
			d := time.Duration(math.Round(*s * float64(time.Second)))
			o.Window = &d
		}
	}
	o.TrimStart = p.num(ParamTrimStart)
	o.TrimEnd = p.num(ParamTrimEnd)
	return o, p.err
}

// params parses query values and keeps the first error
type params struct {
	q   url.Values
	err error
}

func (p *params) fail(key, v string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
}

func (p *params) num(key string) *int {
	v := p.q.Get(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return nil
	}
	return &n
}

func (p *params) float(key string) *float64 {
	v := p.q.Get(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err == nil && (math.IsNaN(f) || math.IsInf(f, 0)) {
		err = fmt.Errorf("not a finite number")
	}
	if err != nil {
		p.fail(key, v, err)
		return nil
	}
	return &f
}

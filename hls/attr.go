package hls

import (
	"fmt"
	"image"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/as/hlsfilter/hls/m3u"
)

// Attribute helpers shared by the tag types. Decoders are lenient about
// attributes that do not affect filtering; the ones that do (BANDWIDTH,
// EXTINF duration) are checked.

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func seconds(s string) (time.Duration, error) {
	return time.ParseDuration(strings.TrimSpace(s) + "s")
}

// fmtSeconds writes d in decimal seconds without float noise: 6.006s is "6.006"
func fmtSeconds(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Second), 'f', -1, 64)
}

func yes(v string) bool {
	return v == "YES"
}

func list(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func resolution(s string) (p image.Point) {
	fmt.Sscanf(s, "%dx%d", &p.X, &p.Y)
	return p
}

func setq(t *m3u.Tag, key, v string) {
	if v != "" {
		t.Set(key, m3u.Value{V: v, Quote: true})
	}
}

func setn(t *m3u.Tag, key, v string) {
	if v != "" {
		t.Set(key, m3u.Value{V: v})
	}
}

func setint(t *m3u.Tag, key string, v int) {
	if v != 0 {
		t.Set(key, m3u.Value{V: strconv.Itoa(v)})
	}
}

func setbool(t *m3u.Tag, key string, v bool) {
	if v {
		t.Set(key, m3u.Value{V: "YES"})
	}
}

func setlist(t *m3u.Tag, key string, v []string) {
	if len(v) > 0 {
		t.Set(key, m3u.Value{V: strings.Join(v, ","), Quote: true})
	}
}

// addExtra keeps an attribute the type does not model
func addExtra(extra *map[string]m3u.Value, key string, v m3u.Value) {
	if *extra == nil {
		*extra = map[string]m3u.Value{}
	}
	(*extra)[key] = v
}

// setExtra writes unmodeled attributes back, sorted by name
func setExtra(t *m3u.Tag, extra map[string]m3u.Value) {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.Set(k, extra[k])
	}
}

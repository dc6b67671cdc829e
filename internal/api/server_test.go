package api

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"

	"github.com/as/hlsfilter/hls"
	"github.com/as/hlsfilter/internal/cache"
	"github.com/as/hlsfilter/internal/config"
	"github.com/as/hlsfilter/internal/telemetry"
)

func fixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile("../../testdata/" + name)
	require.NoError(t, err)
	return string(b)
}

func newServer(t *testing.T, mutate func(*config.Config), c cache.Cache) *Server {
	t.Helper()
	cfg := config.Defaults()
	if mutate != nil {
		mutate(&cfg)
	}
	require.NoError(t, cfg.Validate())
	return New(config.NewHolder(cfg, ""), c)
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func problem(t *testing.T, rec *httptest.ResponseRecorder) Problem {
	t.Helper()
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var p Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, rec.Code, p.Status)
	return p
}

func bandwidths(t *testing.T, rec *httptest.ResponseRecorder) (bw []int) {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, ContentType, rec.Header().Get("Content-Type"))
	var m hls.Master
	require.NoError(t, m.Decode(rec.Body))
	for _, s := range m.Stream {
		bw = append(bw, s.Bandwidth)
	}
	return bw
}

func TestMaster(t *testing.T) {
	h := newServer(t, nil, nil).Handler()
	body := fixture(t, "master.m3u8")

	for _, tc := range []struct {
		query string
		want  []int
	}{
		{"", []int{600000, 800000, 800000, 1200000, 1500000, 2000000}},
		{"?min_bitrate=800000&max_bitrate=1500000", []int{800000, 800000, 1200000, 1500000}},
		{"?rate=30", []int{600000, 800000, 1500000}},
		{"?rate=60&variant_index=2", []int{2000000, 1200000, 800000}},
		{"?closest_bandwidth=1300000", []int{1200000, 600000, 800000, 800000, 1500000, 2000000}},
	} {
		t.Run(tc.query, func(t *testing.T) {
			assert.Equal(t, tc.want, bandwidths(t, do(h, http.MethodPost, "/master"+tc.query, body)))
		})
	}
}

func TestMasterNoMatch(t *testing.T) {
	h := newServer(t, nil, nil).Handler()
	rec := do(h, http.MethodPost, "/master?rate=24", fixture(t, "master.m3u8"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "#EXT-X-STREAM-INF")
	assert.Contains(t, rec.Body.String(), "#EXT-X-MEDIA:")
}

func TestMasterDefaults(t *testing.T) {
	rate := 60.0
	h := newServer(t, func(c *config.Config) { c.Filters.Master.FrameRate = &rate }, nil).Handler()
	body := fixture(t, "master.m3u8")

	assert.Equal(t, []int{800000, 1200000, 2000000}, bandwidths(t, do(h, http.MethodPost, "/master", body)))
	assert.Equal(t, []int{600000, 800000, 1500000}, bandwidths(t, do(h, http.MethodPost, "/master?rate=30", body)),
		"the query overrides the configured default")
}

func TestMedia(t *testing.T) {
	h := newServer(t, nil, nil).Handler()
	body := fixture(t, "media.m3u8")

	for _, tc := range []struct {
		query    string
		segments int
		sequence int
		disc     int
	}{
		{"", 20, 320035356, 0},
		{"?dvr=15", 3, 320035373, 1},
		{"?dvr=14.4", 3, 320035373, 1},
		{"?dvr=15&trim_start=1", 2, 320035374, 1},
		{"?trim_start=5&trim_end=18", 13, 320035361, 1},
		{"?trim_end=2", 2, 320035356, 0},
		{"?dvr=0", 0, 320035376, 1},
	} {
		t.Run(tc.query, func(t *testing.T) {
			rec := do(h, http.MethodPost, "/media"+tc.query, body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, ContentType, rec.Header().Get("Content-Type"))
			var m hls.Media
			require.NoError(t, m.Decode(rec.Body))
			assert.Len(t, m.File, tc.segments)
			assert.Equal(t, tc.sequence, m.Sequence)
			assert.Equal(t, tc.disc, m.Discontinuity)
		})
	}
}

func TestMediaFractionalWindow(t *testing.T) {
	h := newServer(t, nil, nil).Handler()
	body := "#EXTM3U\n#EXT-X-TARGETDURATION:2\n#EXT-X-MEDIA-SEQUENCE:0\n" +
		"#EXTINF:1.001,\ns0.ts\n#EXTINF:1.001,\ns1.ts\n#EXTINF:1.001,\ns2.ts\n"

	for query, want := range map[string]int{
		"?dvr=1.001": 1,
		"?dvr=2.002": 2,
		"?dvr=3.003": 3,
		"?dvr=2.001": 1,
	} {
		t.Run(query, func(t *testing.T) {
			rec := do(h, http.MethodPost, "/media"+query, body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var m hls.Media
			require.NoError(t, m.Decode(rec.Body))
			assert.Len(t, m.File, want)
			assert.Equal(t, 3-want, m.Sequence)
		})
	}
}

func TestMediaQueryWindow(t *testing.T) {
	for v, want := range map[string]time.Duration{
		"1.001": 1001 * time.Millisecond,
		"2.002": 2002 * time.Millisecond,
		"4.004": 4004 * time.Millisecond,
		"0.1":   100 * time.Millisecond,
		"15":    15 * time.Second,
	} {
		o, err := MediaQuery(url.Values{ParamDVR: {v}})
		require.NoError(t, err, v)
		require.NotNil(t, o.Window, v)
		assert.Equal(t, want, *o.Window, v)
	}
}

func TestMediaSpan(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		tp.Shutdown(context.Background())
	})

	h := newServer(t, func(c *config.Config) { c.Telemetry.Enabled = true }, nil).Handler()
	rec := do(h, http.MethodPost, "/media?dvr=15", fixture(t, "media.m3u8"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /media", spans[0].Name)
	got := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes {
		got[kv.Key] = kv.Value
	}
	assert.Equal(t, "media", got[telemetry.PlaylistKindKey].AsString())
	assert.EqualValues(t, 20, got[telemetry.PlaylistInputKey].AsInt64())
	assert.EqualValues(t, 3, got[telemetry.PlaylistOutputKey].AsInt64())
	assert.EqualValues(t, 320035373, got[telemetry.MediaSequenceKey].AsInt64())
	assert.InDelta(t, 14.4, got[telemetry.RuntimeKey].AsFloat64(), 1e-9)
}

func TestBadRequest(t *testing.T) {
	h := newServer(t, nil, nil).Handler()
	master, media := fixture(t, "master.m3u8"), fixture(t, "media.m3u8")

	for _, tc := range []struct {
		name, target, body string
		code, detail       string
	}{
		{"MasterKind", "/master", media, CodeBadPlaylist, "must be a master playlist"},
		{"MediaKind", "/media", master, CodeBadPlaylist, "must be a media playlist"},
		{"NoHeader", "/media", "hello\n", CodeBadPlaylist, ""},
		{"BadRate", "/master?rate=fast", master, CodeBadQuery, `invalid rate "fast"`},
		{"BadBitrate", "/master?min_bitrate=1.5", master, CodeBadQuery, "invalid min_bitrate"},
		{"BadDVR", "/media?dvr=-3", media, CodeBadQuery, "invalid dvr"},
		{"NaNDVR", "/media?dvr=NaN", media, CodeBadQuery, "invalid dvr"},
		{"BadTrim", "/media?trim_start=x", media, CodeBadQuery, "invalid trim_start"},
		{"TrimPastEnd", "/media?trim_start=5&trim_end=30", media, CodeRange, "out of bounds for 20 segments"},
		{"TrimInverted", "/media?trim_start=6&trim_end=2", media, CodeRange, "[6, 2)"},
		{"TrimNegative", "/media?trim_start=-1", media, CodeRange, ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, tc.target, tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			p := problem(t, rec)
			assert.Equal(t, tc.code, p.Code)
			assert.Contains(t, p.Detail, tc.detail)
		})
	}
}

func TestBodyTooLarge(t *testing.T) {
	h := newServer(t, func(c *config.Config) { c.Server.MaxBodyBytes = 16 }, nil).Handler()
	rec := do(h, http.MethodPost, "/media", fixture(t, "media.m3u8"))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, CodeTooLarge, problem(t, rec).Code)
}

func TestCache(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := cache.NewRedis(context.Background(), cache.RedisConfig{Addr: mr.Addr(), TTL: time.Minute}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	h := newServer(t, nil, c).Handler()
	body := fixture(t, "media.m3u8")

	first := do(h, http.MethodPost, "/media?dvr=15", body)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get(HeaderCache))
	assert.Len(t, mr.Keys(), 1)

	second := do(h, http.MethodPost, "/media?dvr=15", body)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get(HeaderCache))
	assert.Equal(t, first.Body.String(), second.Body.String())
	scrape := do(h, http.MethodGet, "/metrics", "")
	assert.Contains(t, scrape.Body.String(), `hlsfilter_transforms_total{kind="media",result="cached"}`)

	other := do(h, http.MethodPost, "/media?dvr=10", body)
	assert.Equal(t, "MISS", other.Header().Get(HeaderCache))

	bad := do(h, http.MethodPost, "/media?trim_end=99", body)
	require.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Len(t, mr.Keys(), 2, "failed transforms are not cached")
}

func TestRequestID(t *testing.T) {
	h := newServer(t, nil, nil).Handler()

	rec := do(h, http.MethodGet, "/healthz", "")
	_, err := uuid.Parse(rec.Header().Get(HeaderRequestID))
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/media?trim_end=99", strings.NewReader(fixture(t, "media.m3u8")))
	req.Header.Set(HeaderRequestID, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))
	assert.Equal(t, "abc-123", problem(t, rec).RequestID)
}

func TestRateLimit(t *testing.T) {
	h := newServer(t, func(c *config.Config) {
		c.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 1, Window: time.Minute}
	}, nil).Handler()
	body := fixture(t, "media.m3u8")

	require.Equal(t, http.StatusOK, do(h, http.MethodPost, "/media", body).Code)
	rec := do(h, http.MethodPost, "/media", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, CodeRateLimited, problem(t, rec).Code)

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/healthz", "").Code, "health checks are not limited")
}

func TestHealth(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := cache.NewRedis(context.Background(), cache.RedisConfig{Addr: mr.Addr(), TTL: time.Minute}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	h := newServer(t, nil, c).Handler()

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/readyz", "").Code)

	mr.Close()
	rec := do(h, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, CodeUnavailable, problem(t, rec).Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/healthz", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newServer(t, nil, nil).Handler()
	require.Equal(t, http.StatusOK, do(h, http.MethodPost, "/master?rate=30", fixture(t, "master.m3u8")).Code)

	rec := do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hlsfilter_transforms_total{kind="master",result="ok"}`)
	assert.Contains(t, rec.Body.String(), "hlsfilter_renditions_removed_total")
}

func TestRouting(t *testing.T) {
	h := newServer(t, nil, nil).Handler()

	rec := do(h, http.MethodGet, "/nowhere", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/nowhere", problem(t, rec).Instance)

	rec = do(h, http.MethodGet, "/media", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	problem(t, rec)
}

func TestRecoverer(t *testing.T) {
	h := requestID(recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rec := do(h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	p := problem(t, rec)
	assert.Equal(t, CodeInternal, p.Code)
	assert.NotEmpty(t, p.RequestID)
}

func TestServe(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := newServer(t, func(c *config.Config) { c.Server.ShutdownTimeout = time.Second }, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Post("http://"+ln.Addr().String()+"/media?dvr=15", "application/vnd.apple.mpegurl", strings.NewReader(fixture(t, "media.m3u8")))
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), "#EXT-X-MEDIA-SEQUENCE:320035373")

	cancel()
	require.NoError(t, <-done)
	client.CloseIdleConnections()
}

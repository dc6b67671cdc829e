package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/as/hlsfilter/filter"
	"github.com/as/hlsfilter/hls"
	"github.com/as/hlsfilter/internal/cache"
	"github.com/as/hlsfilter/internal/log"
	"github.com/as/hlsfilter/internal/metrics"
	"github.com/as/hlsfilter/internal/telemetry"
)

// ContentType is the media type of a playlist response
const ContentType = "application/vnd.apple.mpegurl"

// HeaderCache reports whether a response came from the cache (HIT or MISS)
const HeaderCache = "X-Cache"

func (s *Server) handleMaster(w http.ResponseWriter, r *http.Request) {
	opts, err := MasterQuery(r.URL.Query())
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, CodeBadQuery, err.Error())
		return
	}
	opts = opts.Or(s.holder.Get().Filters.Master)

	s.transform(w, r, "master", opts, func(body []byte) ([]byte, error) {
		var m hls.Master
		if err := m.Decode(bytes.NewReader(body)); err != nil {
			return nil, err
		}
		out := opts.Apply(m)
		telemetry.Annotate(r.Context(), telemetry.TransformAttributes("master", len(m.Stream), len(out.Stream))...)
		metrics.RecordTransform("master", metrics.ResultOK, len(m.Stream)-len(out.Stream))
		var buf bytes.Buffer
		err := out.Encode(&buf)
		return buf.Bytes(), err
	})
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	opts, err := MediaQuery(r.URL.Query())
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, CodeBadQuery, err.Error())
		return
	}
	opts = opts.Or(s.holder.Get().Filters.Media)

	s.transform(w, r, "media", opts, func(body []byte) ([]byte, error) {
		var m hls.Media
		if err := m.Decode(bytes.NewReader(body)); err != nil {
			return nil, err
		}
		out, err := opts.Apply(m)
		if err != nil {
			return nil, err
		}
		telemetry.Annotate(r.Context(), telemetry.TransformAttributes("media", len(m.File), len(out.File))...)
		telemetry.Annotate(r.Context(),
			attribute.Int(telemetry.MediaSequenceKey, out.Sequence),
			telemetry.Runtime(hls.Runtime(out.File...)))
		metrics.RecordTransform("media", metrics.ResultOK, len(m.File)-len(out.File))
		var buf bytes.Buffer
		err = out.Encode(&buf)
		return buf.Bytes(), err
	})
}

// transform reads the body, consults the cache and runs fn on a miss.
// opts must be the effective options; they become part of the cache key.
func (s *Server) transform(w http.ResponseWriter, r *http.Request, kind string, opts any, fn func([]byte) ([]byte, error)) {
	l := log.FromContext(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.holder.Get().Server.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeProblem(w, r, http.StatusRequestEntityTooLarge, CodeTooLarge, err.Error())
			return
		}
		writeProblem(w, r, http.StatusBadRequest, CodeBadPlaylist, err.Error())
		return
	}

	q, _ := json.Marshal(opts)
	key := cache.Key(kind, string(q), body)
	if out, ok := s.cache.Get(r.Context(), key); ok {
		metrics.RecordCacheLookup(true)
		metrics.RecordTransform(kind, metrics.ResultCached, 0)
		telemetry.Annotate(r.Context(), attribute.Bool(telemetry.CacheHitKey, true))
		writePlaylist(w, out, "HIT")
		return
	}
	metrics.RecordCacheLookup(false)

	out, err := fn(body)
	if err != nil {
		status, code, result := http.StatusBadRequest, CodeBadPlaylist, metrics.ResultBadInput
		if errors.Is(err, filter.ErrRange) {
			code, result = CodeRange, metrics.ResultRange
		}
		metrics.RecordTransform(kind, result, 0)
		l.Debug().Err(err).Str(log.FieldKind, kind).Msg("transform rejected")
		writeProblem(w, r, status, code, err.Error())
		return
	}
	s.cache.Set(r.Context(), key, out)
	writePlaylist(w, out, "MISS")
}

func writePlaylist(w http.ResponseWriter, b []byte, cached string) {
	w.Header().Set("Content-Type", ContentType)
	w.Header().Set(HeaderCache, cached)
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

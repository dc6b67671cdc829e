package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	PlaylistKindKey   = "playlist.kind"
	PlaylistInputKey  = "playlist.input_items"
	PlaylistOutputKey = "playlist.output_items"
	MediaSequenceKey  = "playlist.media_sequence"
	RuntimeKey        = "playlist.runtime_seconds"
	CacheHitKey       = "cache.hit"
)

// TransformAttributes describes one transform. in and out count variant
// streams for master playlists and segments for media playlists.
func TransformAttributes(kind string, in, out int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(PlaylistKindKey, kind),
		attribute.Int(PlaylistInputKey, in),
		attribute.Int(PlaylistOutputKey, out),
	}
}

// Runtime is the summed EXTINF duration of a media playlist.
func Runtime(d time.Duration) attribute.KeyValue {
	return attribute.Float64(RuntimeKey, d.Seconds())
}

// Annotate adds attrs to the span in ctx, if any.
func Annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

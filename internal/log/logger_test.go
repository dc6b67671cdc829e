package log

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture points the base logger at a buffer for the duration of the test
func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	Configure(Config{})
	old := base
	buf := &bytes.Buffer{}
	base = zerolog.New(buf)
	t.Cleanup(func() { base = old })
	return buf
}

func lines(t *testing.T, buf *bytes.Buffer) (out []map[string]any) {
	t.Helper()
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if l == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(l), &m))
		out = append(out, m)
	}
	return out
}

func TestWithComponent(t *testing.T) {
	buf := capture(t)
	l := WithComponent("codec")
	l.Info().Str(FieldEvent, "test").Msg("hello")

	have := lines(t, buf)
	require.Len(t, have, 1)
	assert.Equal(t, "codec", have[0][FieldComponent])
	assert.Equal(t, "test", have[0][FieldEvent])
}

func TestRequestIDContext(t *testing.T) {
	assert.Equal(t, "", RequestIDFromContext(context.Background()))

	ctx := ContextWithRequestID(context.Background(), "abc")
	assert.Equal(t, "abc", RequestIDFromContext(ctx))

	buf := capture(t)
	FromContext(ctx).Info().Msg("x")
	have := lines(t, buf)
	require.Len(t, have, 1)
	assert.Equal(t, "abc", have[0][FieldRequestID])
}

func TestMiddleware(t *testing.T) {
	buf := capture(t)

	var inner *zerolog.Logger
	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/media?dvr=15", nil)
	req = req.WithContext(ContextWithRequestID(req.Context(), "rid-1"))
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, inner)

	have := lines(t, buf)
	require.Len(t, have, 1)
	assert.Equal(t, "http.request", have[0][FieldEvent])
	assert.Equal(t, "rid-1", have[0][FieldRequestID])
	assert.Equal(t, "/media", have[0]["path"])
	assert.Equal(t, "dvr=15", have[0]["query"])
	assert.EqualValues(t, http.StatusTeapot, have[0]["status"])
	assert.EqualValues(t, len("short and stout"), have[0]["bytes"])
}

func TestSetLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())
	require.NoError(t, SetLevel("warn"))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	assert.Error(t, SetLevel("loud"))
}

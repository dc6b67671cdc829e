// Package cache stores transformed playlists so that repeated requests for
// the same input and options skip the codec.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is a response cache. Get reports false on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	Ping(ctx context.Context) error
	Close() error
}

// Key derives the cache key for a request of the given kind ("master" or
// "media") from its canonical query and body.
func Key(kind, query string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(query))
	h.Write([]byte{'|'})
	h.Write(body)
	return "hlsfilter:" + kind + ":" + hex.EncodeToString(h.Sum(nil))
}

// Nop never stores anything
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (Nop) Set(context.Context, string, []byte)        {}
func (Nop) Ping(context.Context) error                 { return nil }
func (Nop) Close() error                               { return nil }

const opTimeout = 2 * time.Second

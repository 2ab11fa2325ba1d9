// Package imagefocus decodes headshots and memoises their face-focus position,
// so each image is decoded successfully at most once until it is invalidated.
package imagefocus

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"

	_ "golang.org/x/image/webp"

	"waccamaw/internal/adapters/metrics"
	"waccamaw/internal/domain/facefocus"
)

// maxImageBytes bounds how much of an image is read for decoding.
const maxImageBytes = 20 << 20

// StaticPrefix is the URL prefix served from the static directory.
const StaticPrefix = "/static/"

// ErrNotStatic is returned for sources outside StaticPrefix.
var ErrNotStatic = errors.New("image source must be under " + StaticPrefix)

// Opener returns the image bytes for one key. The caller closes the reader.
type Opener func(ctx context.Context) (io.ReadCloser, error)

// maxEntries bounds the memo. Past it, new keys are decoded but not kept.
const maxEntries = 4096

type entry struct {
	once sync.Once
	pos  facefocus.Position
	ok   bool
}

// Focuser memoises successful focus positions by key. A failed open or
// decode yields facefocus.Default and is retried on the next call. Safe for
// concurrent use.
type Focuser struct {
	mu   sync.Mutex
	memo map[string]*entry
}

// New creates an empty Focuser.
func New() *Focuser {
	return &Focuser{memo: make(map[string]*entry)}
}

// Focus returns the position for key, calling open only until a decode
// succeeds.
// POST: concurrent callers for the same key share one decode
// INVARIANT: the memo holds at most maxEntries keys and keeps no failed decode
func (f *Focuser) Focus(ctx context.Context, key string, open Opener) facefocus.Position {
	f.mu.Lock()
	e, ok := f.memo[key]
	if !ok {
		if len(f.memo) >= maxEntries {
			f.mu.Unlock()
			pos, _ := decode(ctx, key, open)
			return pos
		}
		e = &entry{}
		f.memo[key] = e
	}
	f.mu.Unlock()

	e.once.Do(func() {
		e.pos, e.ok = decode(ctx, key, open)
	})
	if !e.ok {
		f.forget(key, e)
	}
	return e.pos
}

// Invalidate forgets key so the next Focus call decodes again.
func (f *Focuser) Invalidate(key string) {
	f.mu.Lock()
	delete(f.memo, key)
	f.mu.Unlock()
}

// forget drops e unless key was already replaced.
func (f *Focuser) forget(key string, e *entry) {
	f.mu.Lock()
	if f.memo[key] == e {
		delete(f.memo, key)
	}
	f.mu.Unlock()
}

func decode(ctx context.Context, key string, open Opener) (facefocus.Position, bool) {
	rc, err := open(ctx)
	if err != nil {
		metrics.FaceFocusDecodes.WithLabelValues("open_error").Inc()
		slog.Warn("face_focus_open_failed", "key", key, "error", err)
		return facefocus.Default, false
	}
	defer rc.Close()

	img, format, err := image.Decode(io.LimitReader(rc, maxImageBytes))
	if err != nil {
		metrics.FaceFocusDecodes.WithLabelValues("decode_error").Inc()
		slog.Warn("face_focus_decode_failed", "key", key, "error", err)
		return facefocus.Default, false
	}
	metrics.FaceFocusDecodes.WithLabelValues("ok").Inc()
	pos := facefocus.Detect(img)
	slog.Debug("face_focus", "key", key, "format", format, "x", pos.X, "y", pos.Y)
	return pos, true
}

// StaticKey cleans src, a URL path under StaticPrefix, so that spellings of
// the same file share one memo key.
func StaticKey(src string) (string, error) {
	if !strings.HasPrefix(src, StaticPrefix) {
		return "", ErrNotStatic
	}
	clean := path.Clean(src)
	if !strings.HasPrefix(clean, StaticPrefix) {
		return "", fmt.Errorf("invalid static path %q", src)
	}
	return clean, nil
}

// StaticOpener opens src, a URL path under StaticPrefix, from dir. Paths
// that would escape dir fail.
func StaticOpener(dir, src string) (Opener, error) {
	clean, err := StaticKey(src)
	if err != nil {
		return nil, err
	}
	rel := strings.TrimPrefix(clean, StaticPrefix)
	return func(context.Context) (io.ReadCloser, error) {
		f, err := os.OpenInRoot(dir, rel)
		if err != nil {
			return nil, err
		}
		return f, nil
	}, nil
}

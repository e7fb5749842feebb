// Package images resolves the logo and photo paths stored in roster records
// against a blob store and imports new images into it.
package images

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"orgroster/internal/blob"
	"orgroster/pkg/domain"
)

// Kind selects the key prefix an imported image is stored under.
type Kind string

const (
	// KindLogo is used for organization logos.
	KindLogo Kind = "logos"
	// KindPhoto is used for officer photos and card images.
	KindPhoto Kind = "photos"
)

// MaxImageBytes caps the size of an imported image.
const MaxImageBytes = 10 << 20

// Ref is the display view of an image path. Present is false for the
// "No Photo" sentinel, an empty path, and keys the store cannot find.
type Ref struct {
	Key     string
	Present bool
	Info    blob.Info
}

// Resolver maps record image paths onto a blob store.
type Resolver struct {
	store  blob.Store
	expiry time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithURLExpiry sets the lifetime of presigned URLs.
func WithURLExpiry(d time.Duration) Option {
	return func(r *Resolver) { r.expiry = d }
}

// New returns a resolver over store.
func New(store blob.Store, opts ...Option) *Resolver {
	r := &Resolver{store: store}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve reports whether path names a stored image. Unresolvable paths are
// not errors; only a canceled context is.
func (r *Resolver) Resolve(ctx context.Context, p string) (Ref, error) {
	key := normalizeKey(p)
	if !domain.HasImage(key) {
		return Ref{Key: key}, nil
	}
	info, err := r.store.Head(ctx, key)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Ref{Key: key}, ctxErr
		}
		return Ref{Key: key}, nil
	}
	return Ref{Key: key, Present: true, Info: info}, nil
}

// URL returns a loadable location for path, or "" when there is no image.
func (r *Resolver) URL(ctx context.Context, p string) (string, error) {
	ref, err := r.Resolve(ctx, p)
	if err != nil || !ref.Present {
		return "", err
	}
	u, err := r.store.URL(ctx, ref.Key, blob.URLOptions{Expiry: r.expiry})
	if err != nil {
		return "", fmt.Errorf("image url %s: %w", ref.Key, err)
	}
	return u, nil
}

// Import stores the image read from src and returns the key to record in the
// organization or officer. Keys embed a content hash, so importing the same
// bytes twice yields the same key and stores them once.
func (r *Resolver) Import(ctx context.Context, kind Kind, name string, src io.Reader) (string, error) {
	if kind != KindLogo && kind != KindPhoto {
		return "", fmt.Errorf("unknown image kind %q", kind)
	}
	name = normalizeKey(name)
	data, err := io.ReadAll(io.LimitReader(src, MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("image %s is empty", name)
	}
	if len(data) > MaxImageBytes {
		return "", fmt.Errorf("image %s exceeds %d bytes", name, MaxImageBytes)
	}
	contentType := detectType(name, data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", name, contentType)
	}
	sum := sha256.Sum256(data)
	key := string(kind) + "/" + hex.EncodeToString(sum[:8]) + strings.ToLower(path.Ext(name))
	_, err = r.store.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"original_name": path.Base(name)},
	})
	if err != nil && !errors.Is(err, blob.ErrExists) {
		return "", fmt.Errorf("store image: %w", err)
	}
	return key, nil
}

func normalizeKey(p string) string {
	return strings.TrimPrefix(strings.ReplaceAll(strings.TrimSpace(p), `\`, "/"), "./")
}

func detectType(name string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(name))); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

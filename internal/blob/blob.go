// Package blob stores uploaded images under generated keys and reclaims them.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

//go:generate mockgen -destination=blobmock/store.go -package=blobmock . Store

// Store is the object storage the catalog writes images to.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

var ErrInvalidKey = errors.New("invalid blob key")

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// NewKey returns "<prefix>-<uuid><ext>". The extension is taken from the
// uploaded filename when it is a known image type, else ".jpg".
func NewKey(prefix, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if !allowedExt[ext] {
		ext = ".jpg"
	}
	return fmt.Sprintf("%s-%s%s", prefix, uuid.New(), ext)
}

// URL joins the public base and key.
func URL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

// KeyFromURL returns the segment after the last "/" of a stored reference,
// or "" when the reference is empty or has no separator.
func KeyFromURL(ref string) string {
	ref = strings.TrimSpace(ref)
	i := strings.LastIndex(ref, "/")
	if i < 0 {
		return ""
	}

	key := ref[i+1:]
	if q := strings.IndexAny(key, "?#"); q >= 0 {
		key = key[:q]
	}
	if key == "." || key == ".." {
		return ""
	}
	return key
}

func validKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

package blob

import (
	"context"
	"fmt"
	"mime/multipart"
)

// Upload stores an uploaded form file under a fresh "<prefix>-<uuid>" key and
// returns its public URL.
func Upload(ctx context.Context, store Store, publicBase, prefix string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := NewKey(prefix, fh.Filename)
	if err := store.Put(ctx, key, f, fh.Size, contentType); err != nil {
		return "", err
	}

	return URL(publicBase, key), nil
}

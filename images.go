package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"mime"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

const thumbnailSize = 300

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
}

func makeThumbnail(img image.Image) ([]byte, error) {
	thumb := resize.Thumbnail(thumbnailSize, thumbnailSize, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encoding thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

type storedImage struct {
	Key          string
	ThumbnailKey string
}

// storeImage writes the original upload and its thumbnail. Nothing is left
// behind when either write fails.
func storeImage(ctx context.Context, store ImageStore, data []byte, ext string, img image.Image) (*storedImage, error) {
	thumb, err := makeThumbnail(img)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	out := &storedImage{
		Key:          "photos/" + id + ext,
		ThumbnailKey: "thumbs/" + id + ".jpg",
	}

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := store.Put(ctx, out.Key, contentType, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	if err := store.Put(ctx, out.ThumbnailKey, "image/jpeg", bytes.NewReader(thumb)); err != nil {
		_ = store.Delete(ctx, out.Key)
		return nil, err
	}

	return out, nil
}

func removeImage(ctx context.Context, store ImageStore, si *storedImage) {
	for _, key := range []string{si.Key, si.ThumbnailKey} {
		if err := store.Delete(ctx, key); err != nil {
			logJSON("WARN", "removing orphaned upload", map[string]any{"key": key, "error": err.Error()})
		}
	}
}

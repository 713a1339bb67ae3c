package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore keeps objects in memory and can fail the n-th Put.
type recordingStore struct {
	puts    []string
	deletes []string
	objects map[string][]byte
	failPut int
}

func (s *recordingStore) Put(_ context.Context, key, _ string, body io.Reader) error {
	if s.failPut > 0 && len(s.puts)+1 == s.failPut {
		return errors.New("storage unavailable")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[key] = data
	s.puts = append(s.puts, key)
	return nil
}

func (s *recordingStore) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	s.deletes = append(s.deletes, key)
	return nil
}

func (s *recordingStore) URL(key string) string {
	return "mem://" + key
}

func TestMakeThumbnail(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"landscape", 1200, 600, 300, 150},
		{"portrait", 400, 800, 150, 300},
		{"already small", 100, 50, 100, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewRGBA(image.Rect(0, 0, tt.w, tt.h))

			data, err := makeThumbnail(img)
			require.NoError(t, err)

			thumb, err := jpeg.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, thumb.Bounds().Dx())
			assert.Equal(t, tt.wantH, thumb.Bounds().Dy())
		})
	}
}

func TestStoreImage(t *testing.T) {
	store := &recordingStore{}
	data := pngBytes(t)
	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	si, err := storeImage(context.Background(), store, data, ".png", img)
	require.NoError(t, err)

	assert.Regexp(t, `^photos/[0-9a-f-]{36}\.png$`, si.Key)
	assert.Regexp(t, `^thumbs/[0-9a-f-]{36}\.jpg$`, si.ThumbnailKey)
	assert.Equal(t, data, store.objects[si.Key])
	assert.NotEmpty(t, store.objects[si.ThumbnailKey])
}

func TestStoreImage_ThumbnailFailureRollsBack(t *testing.T) {
	store := &recordingStore{failPut: 2}
	data := pngBytes(t)
	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	_, err = storeImage(context.Background(), store, data, ".png", img)
	require.Error(t, err)

	assert.Empty(t, store.objects)
	assert.Equal(t, store.puts, store.deletes)
}

func TestRemoveImage(t *testing.T) {
	store := &recordingStore{}
	si := &storedImage{Key: "photos/a.png", ThumbnailKey: "thumbs/a.jpg"}

	removeImage(context.Background(), store, si)

	assert.Equal(t, []string{"photos/a.png", "thumbs/a.jpg"}, store.deletes)
}

package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
)

const maxTitleLength = 150

// photoForm is the submitted upload. The author and posting time are set
// by the server and never read from the request.
type photoForm struct {
	Title      string
	CategoryID string
	Errors     map[string]string

	categoryID uint
	data       []byte
	ext        string
	img        image.Image
}

func (f *photoForm) Valid() bool {
	return len(f.Errors) == 0
}

func (f *photoForm) addError(field, msg string) {
	if f.Errors == nil {
		f.Errors = make(map[string]string)
	}
	if _, ok := f.Errors[field]; !ok {
		f.Errors[field] = msg
	}
}

// readPhotoForm expects r's multipart form to be parsed already.
func readPhotoForm(ctx context.Context, db *gorm.DB, r *http.Request, maxBytes int64) (*photoForm, error) {
	f := &photoForm{
		Title:      strings.TrimSpace(r.FormValue("title")),
		CategoryID: strings.TrimSpace(r.FormValue("category")),
	}

	switch {
	case f.Title == "":
		f.addError("title", "This field is required.")
	case utf8.RuneCountInString(f.Title) > maxTitleLength:
		f.addError("title", "Ensure this value has at most 150 characters.")
	}

	if f.CategoryID == "" {
		f.addError("category", "This field is required.")
	} else if id, err := strconv.ParseUint(f.CategoryID, 10, 64); err != nil {
		f.addError("category", "Select a valid choice.")
	} else {
		c, err := getCategory(ctx, db, uint(id))
		if err != nil {
			return nil, err
		}
		if c == nil {
			f.addError("category", "Select a valid choice.")
		} else {
			f.categoryID = c.ID
		}
	}

	if err := f.readImage(r, maxBytes); err != nil {
		return nil, err
	}

	return f, nil
}

func (f *photoForm) readImage(r *http.Request, maxBytes int64) error {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		f.addError("image", "This field is required.")
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	if header.Size > maxBytes {
		f.addError("image", "The uploaded file is too large.")
		return nil
	}

	f.ext = strings.ToLower(filepath.Ext(header.Filename))
	if !imageExtensions[f.ext] {
		f.addError("image", "Upload a valid image. Allowed extensions: jpg, jpeg, png, gif.")
		return nil
	}

	f.data, err = io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return err
	}
	if int64(len(f.data)) > maxBytes {
		f.addError("image", "The uploaded file is too large.")
		return nil
	}

	f.img, _, err = image.Decode(bytes.NewReader(f.data))
	if err != nil {
		f.addError("image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	return nil
}

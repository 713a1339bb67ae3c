package main

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

const photosPerPage = 9

// PhotoFilter narrows a listing. A nil field means "no filter on it".
// None matches no photo at all.
type PhotoFilter struct {
	CategoryID *uint
	UserID     *uint
	None       bool
}

func (f PhotoFilter) scope(tx *gorm.DB) *gorm.DB {
	if f.None {
		tx = tx.Where("1 = 0")
	}
	if f.CategoryID != nil {
		tx = tx.Where("category_id = ?", *f.CategoryID)
	}
	if f.UserID != nil {
		tx = tx.Where("user_id = ?", *f.UserID)
	}
	return tx
}

type pageRequest struct {
	Number int
	Last   bool
}

type Page struct {
	Photos       []PhotoPost
	Number       int
	NumPages     int
	Total        int64
	HasNext      bool
	HasPrevious  bool
	NextPage     int
	PreviousPage int
}

func numPages(total int64) int {
	n := int((total + photosPerPage - 1) / photosPerPage)
	if n < 1 {
		return 1
	}
	return n
}

// listPhotos returns one page of photos, newest first. A page outside
// 1..NumPages comes back empty rather than as an error.
func listPhotos(ctx context.Context, db *gorm.DB, f PhotoFilter, req pageRequest) (*Page, error) {
	var total int64
	if err := db.WithContext(ctx).Model(&PhotoPost{}).Scopes(f.scope).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting photos: %w", err)
	}

	page := &Page{Number: req.Number, NumPages: numPages(total), Total: total}
	if req.Last {
		page.Number = page.NumPages
	}

	if page.Number < 1 || page.Number > page.NumPages {
		return page, nil
	}

	page.HasNext = page.Number < page.NumPages
	page.HasPrevious = page.Number > 1
	if page.HasNext {
		page.NextPage = page.Number + 1
	}
	if page.HasPrevious {
		page.PreviousPage = page.Number - 1
	}

	err := db.WithContext(ctx).
		Scopes(f.scope).
		Preload("Category").
		Preload("User").
		Order("posted_at DESC").
		Order("id DESC").
		Limit(photosPerPage).
		Offset((page.Number - 1) * photosPerPage).
		Find(&page.Photos).Error
	if err != nil {
		return nil, fmt.Errorf("listing photos: %w", err)
	}

	return page, nil
}

func createPhoto(ctx context.Context, db *gorm.DB, p *PhotoPost) error {
	if err := db.WithContext(ctx).Omit("Category", "User").Create(p).Error; err != nil {
		return fmt.Errorf("inserting photo: %w", err)
	}
	return nil
}

func listCategories(ctx context.Context, db *gorm.DB) ([]Category, error) {
	var categories []Category
	if err := db.WithContext(ctx).Order("id").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

func getCategory(ctx context.Context, db *gorm.DB, id uint) (*Category, error) {
	var c Category
	err := db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category %d: %w", id, err)
	}
	return &c, nil
}

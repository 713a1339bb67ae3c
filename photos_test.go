package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func titles(photos []PhotoPost) []string {
	out := make([]string, len(photos))
	for i, p := range photos {
		out[i] = p.Title
	}
	return out
}

func uintPtr(v uint) *uint { return &v }

func TestNumPages(t *testing.T) {
	tests := []struct {
		total int64
		want  int
	}{
		{0, 1},
		{1, 1},
		{9, 1},
		{10, 2},
		{18, 2},
		{19, 3},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.total), func(t *testing.T) {
			assert.Equal(t, tt.want, numPages(tt.total))
		})
	}
}

func TestListPhotos_Empty(t *testing.T) {
	g := setupTestGallery(t)

	page, err := listPhotos(context.Background(), g.db, PhotoFilter{}, pageRequest{Number: 1})
	require.NoError(t, err)

	assert.Empty(t, page.Photos)
	assert.Equal(t, 1, page.NumPages)
	assert.False(t, page.HasNext)
	assert.False(t, page.HasPrevious)
}

func TestListPhotos_TenPhotosMakeTwoPages(t *testing.T) {
	g := setupTestGallery(t)
	u := seedUser(t, g, "alice")
	for i := 0; i < 10; i++ {
		addPhoto(t, g, fmt.Sprintf("p%d", i), 1, u.ID, testEpoch.Add(time.Duration(i)*time.Hour))
	}

	first, err := listPhotos(context.Background(), g.db, PhotoFilter{}, pageRequest{Number: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, first.NumPages)
	assert.Equal(t, int64(10), first.Total)
	assert.Equal(t, []string{"p9", "p8", "p7", "p6", "p5", "p4", "p3", "p2", "p1"}, titles(first.Photos))
	assert.True(t, first.HasNext)
	assert.Equal(t, 2, first.NextPage)
	assert.False(t, first.HasPrevious)

	second, err := listPhotos(context.Background(), g.db, PhotoFilter{}, pageRequest{Number: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"p0"}, titles(second.Photos))
	assert.False(t, second.HasNext)
	assert.True(t, second.HasPrevious)
	assert.Equal(t, 1, second.PreviousPage)
}

func TestListPhotos_LastPage(t *testing.T) {
	g := setupTestGallery(t)
	u := seedUser(t, g, "alice")
	for i := 0; i < 19; i++ {
		addPhoto(t, g, fmt.Sprintf("p%d", i), 1, u.ID, testEpoch.Add(time.Duration(i)*time.Hour))
	}

	page, err := listPhotos(context.Background(), g.db, PhotoFilter{}, pageRequest{Last: true})
	require.NoError(t, err)

	assert.Equal(t, 3, page.Number)
	assert.Equal(t, []string{"p0"}, titles(page.Photos))
}

func TestListPhotos_OutOfRange(t *testing.T) {
	g := setupTestGallery(t)
	u := seedUser(t, g, "alice")
	addPhoto(t, g, "only", 1, u.ID, testEpoch)

	for _, n := range []int{0, -1, 2, 100} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			page, err := listPhotos(context.Background(), g.db, PhotoFilter{}, pageRequest{Number: n})
			require.NoError(t, err)
			assert.Empty(t, page.Photos)
			assert.Equal(t, 1, page.NumPages)
			assert.Equal(t, int64(1), page.Total)
		})
	}
}

func TestListPhotos_TiesBrokenByID(t *testing.T) {
	g := setupTestGallery(t)
	u := seedUser(t, g, "alice")
	addPhoto(t, g, "first", 1, u.ID, testEpoch)
	addPhoto(t, g, "second", 1, u.ID, testEpoch)

	page, err := listPhotos(context.Background(), g.db, PhotoFilter{}, pageRequest{Number: 1})
	require.NoError(t, err)

	assert.Equal(t, []string{"second", "first"}, titles(page.Photos))
}

func TestListPhotos_FilterByCategory(t *testing.T) {
	g := setupTestGallery(t)
	u := seedUser(t, g, "alice")
	addPhoto(t, g, "l-old", 1, u.ID, testEpoch)
	addPhoto(t, g, "p-mid", 2, u.ID, testEpoch.Add(time.Hour))
	addPhoto(t, g, "l-new", 1, u.ID, testEpoch.Add(2*time.Hour))

	page, err := listPhotos(context.Background(), g.db, PhotoFilter{CategoryID: uintPtr(1)}, pageRequest{Number: 1})
	require.NoError(t, err)

	assert.Equal(t, []string{"l-new", "l-old"}, titles(page.Photos))
	for _, p := range page.Photos {
		assert.Equal(t, uint(1), p.CategoryID)
		assert.Equal(t, "Landscape", p.Category.Title)
		assert.Equal(t, "alice", p.User.Username)
	}
}

func TestListPhotos_FilterByUnknownValue(t *testing.T) {
	g := setupTestGallery(t)
	u := seedUser(t, g, "alice")
	addPhoto(t, g, "x", 1, u.ID, testEpoch)

	for name, f := range map[string]PhotoFilter{
		"category 0":   {CategoryID: uintPtr(0)},
		"category 404": {CategoryID: uintPtr(404)},
		"user 404":     {UserID: uintPtr(404)},
	} {
		t.Run(name, func(t *testing.T) {
			page, err := listPhotos(context.Background(), g.db, f, pageRequest{Number: 1})
			require.NoError(t, err)
			assert.Empty(t, page.Photos)
			assert.Equal(t, int64(0), page.Total)
		})
	}
}

func TestListPhotos_FilterByUser(t *testing.T) {
	g := setupTestGallery(t)
	alice := seedUser(t, g, "alice")
	bob := seedUser(t, g, "bob")
	addPhoto(t, g, "a1", 1, alice.ID, testEpoch)
	addPhoto(t, g, "b1", 2, bob.ID, testEpoch.Add(time.Hour))
	addPhoto(t, g, "a2", 2, alice.ID, testEpoch.Add(2*time.Hour))

	page, err := listPhotos(context.Background(), g.db, PhotoFilter{UserID: &alice.ID}, pageRequest{Number: 1})
	require.NoError(t, err)

	assert.Equal(t, []string{"a2", "a1"}, titles(page.Photos))
}

func TestListCategories(t *testing.T) {
	g := setupTestGallery(t)

	categories, err := listCategories(context.Background(), g.db)
	require.NoError(t, err)

	require.Len(t, categories, 2)
	assert.Equal(t, "Landscape", categories[0].Title)
	assert.Equal(t, "Portrait", categories[1].Title)
}

func TestGetCategory_NotFound(t *testing.T) {
	g := setupTestGallery(t)

	c, err := getCategory(context.Background(), g.db, 99)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestCreatePhoto_RejectsUnknownCategory(t *testing.T) {
	g := setupTestGallery(t)
	u := seedUser(t, g, "alice")

	err := createPhoto(context.Background(), g.db, &PhotoPost{
		Title: "x", Image: "a", Thumbnail: "b", CategoryID: 99, UserID: u.ID, PostedAt: testEpoch,
	})

	assert.Error(t, err, "foreign key should reject a missing category")
}

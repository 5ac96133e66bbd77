package seed

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/heritageload/internal/archive"
)

var (
	off = false

	codedUnits = []Unit{
		{ID: "u-fh", Order: 2, ReferenceCode: "FH"},
		{ID: "u-fasilkom", Order: 1, ReferenceCode: "FASILKOM"},
		{ID: "u-old", Order: 3, ReferenceCode: "OLD", DeletedAt: &deleted},
		{ID: "u-off", Order: 4, ReferenceCode: "OFF", IsActive: &off},
	}
	categories = []Category{
		{ID: "c-1", Name: "Sejarah"},
		{ID: "c-2", Name: "Arsip", DeletedAt: &deleted},
		{ID: "c-3", Name: "Kegiatan", IsActive: &off},
	}
)

func TestPublishableUnitsAndCategories(t *testing.T) {
	u := PublishableUnits(codedUnits)
	require.Len(t, u, 2)
	assert.Equal(t, "u-fh", u[0].ID)
	assert.Equal(t, "u-fasilkom", u[1].ID)

	c := ActiveCategories(categories)
	require.Len(t, c, 1)
	assert.Equal(t, "c-1", c[0].ID)
}

func TestLoadCategories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id":"c-1","name":"Sejarah","is_active":true,"deleted_at":null},
		{"id":"c-2","name":"Arsip","is_active":false,"deleted_at":null}
	]`), 0o644))

	got, err := LoadCategories(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[1].IsActive)
	assert.False(t, *got[1].IsActive)
	assert.Len(t, ActiveCategories(got), 1)

	_, err = LoadCategories(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestTags(t *testing.T) {
	tags := generator(3).Tags()
	require.Len(t, tags, TagCount)
	assert.Equal(t, "penelitian", tags[0].Name)
	assert.Equal(t, "sistem informasi", tags[len(singleWordTags)+len(twoWordTags)-1].Name)

	names := map[string]bool{}
	ids := map[uuid.UUID]bool{}
	for _, tag := range tags {
		assert.False(t, names[tag.Name], "duplicate tag %q", tag.Name)
		names[tag.Name] = true
		ids[tag.ID] = true
	}
	assert.Len(t, ids, TagCount)
}

func TestMediaItemTypes(t *testing.T) {
	assert.Equal(t, archive.MediaArtikel, mediaItemTypes.Resolve(0))
	assert.Equal(t, archive.MediaArtikel, mediaItemTypes.Resolve(0.6))
	assert.Equal(t, archive.MediaGaleri, mediaItemTypes.Resolve(0.61))
	assert.Equal(t, archive.MediaGaleri, mediaItemTypes.Resolve(0.85))
	assert.Equal(t, archive.MediaVideo, mediaItemTypes.Resolve(0.95))
	assert.Equal(t, archive.MediaArtikel, mediaItemTypes.Resolve(1), "past the running sum")
}

func TestReferenceCode(t *testing.T) {
	assert.Equal(t, "ID-UI-FASILKOMFH-0007", ReferenceCode(codedUnits, []string{"u-fh", "u-fasilkom"}, 7))
	assert.Equal(t, "ID-UI-FH-0200", ReferenceCode(codedUnits, []string{"u-fh"}, 200))
	assert.Equal(t, "ID-UI-FH-123456", ReferenceCode(codedUnits, []string{"u-fh"}, 123456))
	assert.Equal(t, "ID-UI--0001", ReferenceCode(codedUnits, []string{"unknown"}, 1))
}

func TestMediaExtent(t *testing.T) {
	img := MediaFile{FileType: "image/jpeg"}
	vid := MediaFile{FileType: "video/mp4"}

	assert.Equal(t, "1 tulisan", MediaExtent(archive.MediaArtikel, nil))
	assert.Equal(t, "1 tulisan dan 2 gambar", MediaExtent(archive.MediaArtikel, []MediaFile{img, img}))
	assert.Equal(t, "1 video", MediaExtent(archive.MediaVideo, []MediaFile{vid}))
	assert.Equal(t, "3 gambar dan 1 video", MediaExtent(archive.MediaGaleri, []MediaFile{img, img, img, vid}))
	assert.Equal(t, "2 media", MediaExtent(archive.MediaType(9), []MediaFile{img, vid}))
}

func TestFiles(t *testing.T) {
	g := generator(8)
	for i := 0; i < 50; i++ {
		art := g.files(archive.MediaArtikel)
		assert.True(t, len(art) >= 1 && len(art) <= 2, "article files %d", len(art))
		for j, f := range art {
			assert.Equal(t, "image/jpeg", f.FileType)
			assert.Equal(t, j, f.Order)
			assert.Empty(t, f.ThumbnailPath)
			assert.True(t, f.FileSize >= 100000 && f.FileSize <= 400000)
		}

		gal := g.files(archive.MediaGaleri)
		images := 0
		for _, f := range gal {
			if !f.IsVideo() {
				images++
			}
		}
		assert.True(t, images >= 3 && images <= 5, "gallery images %d", images)
		assert.LessOrEqual(t, len(gal)-images, 1)
		if last := gal[len(gal)-1]; last.IsVideo() {
			assert.Equal(t, images, last.Order)
			assert.Equal(t, "galeri_video.mp4", last.FileName)
		}

		vid := g.files(archive.MediaVideo)
		require.Len(t, vid, 1)
		assert.Equal(t, "video_konten.mp4", vid[0].FileName)
		assert.True(t, strings.HasPrefix(vid[0].ThumbnailPath, "video/thumbnails/video_thumbnail_"))
		assert.Contains(t, vid[0].FilePath, vid[0].ID.String())
	}
}

func TestMediaItems(t *testing.T) {
	base := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	g := generator(21)
	items, err := g.MediaItems(codedUnits, categories, g.Tags(), 40, base)
	require.NoError(t, err)
	require.Len(t, items, 40)

	code := regexp.MustCompile(`^ID-UI-(FASILKOM)?(FH)?-\d{4}$`)
	seen := map[uuid.UUID]bool{}
	for i, it := range items {
		assert.False(t, seen[it.ID])
		seen[it.ID] = true

		assert.Equal(t, "c-1", it.CategoryID)
		assert.Equal(t, base.Add(time.Duration(i+1)*time.Second), it.StatusUpdatedAt)
		assert.Regexp(t, code, it.ReferenceCode)
		assert.True(t, strings.HasSuffix(it.ReferenceCode, fmt.Sprintf("-%04d", i+1)), it.ReferenceCode)
		assert.True(t, strings.HasSuffix(it.Title, it.Type.DisplayName()+" UI Heritage"), it.Title)
		assert.Equal(t, MediaExtent(it.Type, it.Files), it.MediaExtent)
		assert.NotEmpty(t, it.Files)
		assert.True(t, len(it.UnitIDs) >= 1 && len(it.UnitIDs) <= 2)
		assert.NotContains(t, it.UnitIDs, "u-old")
		assert.NotContains(t, it.UnitIDs, "u-off")
		assert.LessOrEqual(t, len(it.Tags), maxItemTags)
		assert.False(t, it.EventDate.After(base))
		assert.False(t, it.EventDate.Before(base.AddDate(0, 0, -eventSpan)))

		if it.Type == archive.MediaArtikel {
			assert.NotEmpty(t, it.Description)
		} else {
			assert.Empty(t, it.Description)
		}
	}
}

func TestMediaItems_NothingActive(t *testing.T) {
	g := generator(1)
	_, err := g.MediaItems(codedUnits, categories[1:], nil, 1, time.Now())
	assert.ErrorIs(t, err, ErrNoActiveCategories)

	_, err = g.MediaItems(codedUnits[2:], categories, nil, 1, time.Now())
	assert.ErrorIs(t, err, ErrNoActiveUnits)
}

func TestWriteMediaItemsSQL(t *testing.T) {
	now := time.Date(2026, 10, 14, 8, 30, 0, 0, time.UTC)
	ids := sequentialIDs()
	tag := Tag{ID: ids(), Name: "warisan budaya"}
	item := MediaItem{
		ID:              ids(),
		Title:           "Sejarah Kampus O'Brien Galeri UI Heritage",
		Type:            archive.MediaGaleri,
		CategoryID:      "c-1",
		EventDate:       time.Date(2019, 3, 2, 0, 0, 0, 0, time.UTC),
		ReferenceCode:   "ID-UI-FH-0001",
		MediaExtent:     "1 gambar dan 1 video",
		StatusUpdatedAt: now.Add(time.Second),
		UnitIDs:         []string{"u-fh"},
		Tags:            []Tag{tag},
		Files: []MediaFile{
			{ID: ids(), FileName: "galeri_image_1.jpg", FilePath: "images/g.jpg", FileType: "image/jpeg", FileSize: 100,
				Order: 0, Caption: "Galeri foto 1", Copyright: "© Universitas Indonesia 2020"},
			{ID: ids(), FileName: "galeri_video.mp4", FilePath: "videos/g.mp4", FileType: "video/mp4", FileSize: 2000,
				ThumbnailPath: "video/thumbnails/t.jpg", Order: 1, Caption: "Video dokumentasi", Copyright: "© Universitas Indonesia 2021"},
		},
	}
	bare := item
	bare.ID = ids()
	bare.Tags = nil

	var buf bytes.Buffer
	require.NoError(t, WriteMediaItemsSQL(&buf, []Tag{tag}, []MediaItem{item, bare}, DefaultContributorID, now))
	sql := buf.String()

	assert.Contains(t, sql, "-- Generated at: 2026-10-14 08:30:00")
	assert.Contains(t, sql, "VALUES ('00000000-0000-0000-0000-000000000001', 'warisan budaya', NOW(), NOW());")
	assert.Equal(t, 2, strings.Count(sql, "INSERT INTO media_items ("))
	assert.Contains(t, sql, "'Sejarah Kampus O''Brien Galeri UI Heritage', '', 3, '"+DefaultContributorID+"', 4, 'c-1',")
	assert.Contains(t, sql, "'2019-03-02', 'ID-UI-FH-0001', 'Item', '1 gambar dan 1 video',")
	assert.Contains(t, sql, "NOW(), NOW(), '2026-10-14 08:30:01'\n);")
	assert.Contains(t, sql, "'image/jpeg', 100, NULL, NOW(), NOW());")
	assert.Contains(t, sql, "'video/mp4', 2000, 'video/thumbnails/t.jpg', NOW(), NOW());")
	assert.Contains(t, sql, "'Galeri foto 1', 0, '© Universitas Indonesia 2020', NOW(), NOW()),\n")
	assert.Contains(t, sql, "'Video dokumentasi', 1, '© Universitas Indonesia 2021', NOW(), NOW());\n")
	assert.Contains(t, sql, "'u-fh', 4, NOW(), NOW());")
	assert.Equal(t, 2, strings.Count(sql, "INSERT INTO media_item_arsip_approvals"))
	assert.Equal(t, 1, strings.Count(sql, "INSERT INTO media_item_tags"), "items without tags get no tag insert")
}

func TestWriteMediaItems(t *testing.T) {
	g := generator(4)
	tags := g.Tags()
	items, err := g.MediaItems(codedUnits, categories, tags, 3, time.Now())
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	path, err := WriteMediaItems(dir, tags, items, DefaultContributorID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, MediaItemsFile), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, TagCount, strings.Count(string(data), "INSERT INTO tags"))
	assert.Equal(t, 3, strings.Count(string(data), "INSERT INTO media_items ("))
}

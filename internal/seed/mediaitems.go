// internal/seed/mediaitems.go
package seed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/FairForge/heritageload/internal/archive"
	"github.com/FairForge/heritageload/internal/chance"
)

// StatusApproved is the approval status of seeded media items and of every
// unit and arsip approval attached to them.
const StatusApproved = 4

// Media item defaults.
const (
	DefaultMediaItems    = 200
	TagCount             = 100
	MediaItemsFile       = "generate_media_items.sql"
	DefaultContributorID = "4eed0dc6-11e1-4d8b-a9fa-1163e4863441"
)

const (
	maxItemUnits = 5
	maxItemTags  = 5
	eventSpan    = 10 * 365 // days back from now

	descriptionLevel = "Item"
	archivalHistory  = "Arsip dikumpulkan dari dokumentasi kegiatan universitas"
	archivalSource   = "Dokumentasi internal Universitas Indonesia"
	archivalLang     = "Indonesia"
	archivalNote     = "Dokumen ini merupakan bagian dari koleksi UI Heritage"
)

// ErrNoActiveCategories is returned when no category is active.
var ErrNoActiveCategories = errors.New("seed: no active categories")

// Seeded items are 60% articles, 30% galleries and 10% videos. Draws are
// compared with <= against the running sum; anything past it is an article.
var mediaItemTypes = chance.MustWeighted(
	chance.Outcome[archive.MediaType]{Value: archive.MediaArtikel, Weight: 0.6},
	chance.Outcome[archive.MediaType]{Value: archive.MediaGaleri, Weight: 0.3},
	chance.Outcome[archive.MediaType]{Value: archive.MediaVideo, Weight: 0.1},
).Inclusive(archive.MediaArtikel)

var (
	singleWordTags = []string{
		"penelitian", "akademik", "pendidikan", "ilmiah", "studi", "kajian",
		"acara", "seminar", "workshop", "konferensi", "pertemuan", "kegiatan",
		"sejarah", "dokumentasi", "arsip", "warisan", "heritage", "tradisi",
		"kampus", "universitas", "fakultas", "mahasiswa", "dosen", "alumni",
		"teknologi", "sains", "inovasi", "prestasi", "pencapaian", "karya",
		"pengabdian", "masyarakat", "internasional", "nasional", "komunitas",
		"organisasi", "kolaborasi", "riset", "budaya", "ilmu", "jurnal",
		"publikasi", "gedung", "laboratorium", "perpustakaan", "fasilitas",
		"rektorat", "dekanat", "yudisium", "wisuda", "orientasi", "penerimaan",
	}
	twoWordTags = []string{
		"penelitian ilmiah", "kajian akademik", "studi komprehensif",
		"sejarah universitas", "warisan budaya", "inovasi teknologi",
		"prestasi akademik", "publikasi ilmiah", "laboratorium riset",
		"dokumentasi kampus", "arsip sejarah", "perpustakaan pusat",
		"pengabdian masyarakat", "kolaborasi internasional", "kerja sama",
		"fakultas kedokteran", "fakultas hukum", "fakultas teknik",
		"fakultas ekonomi", "gedung rektorat", "upacara wisuda",
		"mahasiswa berprestasi", "dosen teladan", "alumni sukses",
		"kegiatan kemahasiswaan", "organisasi kampus", "komunitas akademik",
		"seminar nasional", "konferensi internasional", "workshop pelatihan",
		"perpustakaan digital", "sumber informasi", "karya ilmiah",
		"jurnal penelitian", "publikasi akademik", "basis data",
		"inovasi pendidikan", "metode pembelajaran", "fasilitas kampus",
		"program sarjana", "program pascasarjana", "program doktoral",
		"beasiswa pendidikan", "pertukaran mahasiswa", "sistem informasi",
	}
)

// Category is one row of the categories export.
type Category struct {
	ID        string  `json:"id"`
	Name      string  `json:"name,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
	DeletedAt *string `json:"deleted_at"`
}

// LoadCategories reads a categories export (a JSON array).
func LoadCategories(path string) ([]Category, error) {
	return loadExport[Category](path, "categories")
}

func live(isActive *bool, deletedAt *string) bool {
	return (isActive == nil || *isActive) && deletedAt == nil
}

// PublishableUnits keeps units that are active and not deleted.
func PublishableUnits(units []Unit) []Unit {
	out := make([]Unit, 0, len(units))
	for _, u := range units {
		if u.ID != "" && live(u.IsActive, u.DeletedAt) {
			out = append(out, u)
		}
	}
	return out
}

// ActiveCategories keeps categories that are active and not deleted.
func ActiveCategories(cats []Category) []Category {
	out := make([]Category, 0, len(cats))
	for _, c := range cats {
		if c.ID != "" && live(c.IsActive, c.DeletedAt) {
			out = append(out, c)
		}
	}
	return out
}

type Tag struct {
	ID   uuid.UUID
	Name string
}

// MediaFile is a file row plus its link into one media item.
type MediaFile struct {
	ID            uuid.UUID
	FileName      string
	FilePath      string
	FileType      string
	FileSize      int
	ThumbnailPath string // empty for images
	Order         int
	Caption       string
	Copyright     string
}

// IsVideo reports whether the file is a video.
func (f MediaFile) IsVideo() bool { return strings.HasPrefix(f.FileType, "video/") }

// MediaItem is one approved media item with its files, units and tags.
type MediaItem struct {
	ID              uuid.UUID
	Title           string
	Description     string
	Type            archive.MediaType
	CategoryID      string
	EventDate       time.Time
	ReferenceCode   string
	MediaExtent     string
	StatusUpdatedAt time.Time
	UnitIDs         []string
	Tags            []Tag
	Files           []MediaFile
}

// Tags returns the fixed tag vocabulary: every single and two word tag,
// topped up with random pairs of single words until there are TagCount.
func (g *Generator) Tags() []Tag {
	names := slices.Concat(singleWordTags, twoWordTags)
	seen := make(map[string]bool, TagCount)
	for _, n := range names {
		seen[n] = true
	}
	for len(names) < TagCount {
		a := chance.Pick(g.rand, singleWordTags)
		b := chance.Pick(g.rand, singleWordTags)
		if a == b || seen[a+" "+b] || seen[b+" "+a] {
			continue
		}
		seen[a+" "+b] = true
		names = append(names, a+" "+b)
	}

	tags := make([]Tag, 0, TagCount)
	for _, n := range names[:TagCount] {
		tags = append(tags, Tag{ID: g.newID(), Name: n})
	}
	return tags
}

// MediaItems draws n approved media items. Item i has status_updated_at
// base+(i+1)s, so the newest-first listing follows generation order.
func (g *Generator) MediaItems(units []Unit, cats []Category, tags []Tag, n int, base time.Time) ([]MediaItem, error) {
	activeCats := ActiveCategories(cats)
	if len(activeCats) == 0 {
		return nil, ErrNoActiveCategories
	}
	activeUnits := PublishableUnits(units)
	if len(activeUnits) == 0 {
		return nil, ErrNoActiveUnits
	}

	items := make([]MediaItem, 0, n)
	for i := 0; i < n; i++ {
		t := mediaItemTypes.Choose(g.rand)
		item := MediaItem{
			ID:              g.newID(),
			Title:           g.content.Title(t),
			Type:            t,
			EventDate:       g.eventDate(base),
			StatusUpdatedAt: base.Add(time.Duration(i+1) * time.Second),
		}
		if t == archive.MediaArtikel {
			item.Description = g.content.Description(g.rand.IntBetween(2, 5))
		}
		item.CategoryID = chance.Pick(g.rand, activeCats).ID

		picked := chance.Sample(g.rand, activeUnits, g.rand.IntBetween(1, float64(min(maxItemUnits, len(activeUnits)))))
		for _, u := range picked {
			item.UnitIDs = append(item.UnitIDs, u.ID)
		}
		item.Tags = chance.Sample(g.rand, tags, g.rand.IntBetween(0, maxItemTags))
		item.Files = g.files(t)
		item.ReferenceCode = ReferenceCode(units, item.UnitIDs, i+1)
		item.MediaExtent = MediaExtent(t, item.Files)
		items = append(items, item)
	}
	return items, nil
}

func (g *Generator) eventDate(now time.Time) time.Time {
	start := now.AddDate(0, 0, -eventSpan)
	return start.AddDate(0, 0, g.rand.IntBetween(0, eventSpan))
}

func (g *Generator) copyright() string {
	return fmt.Sprintf("© Universitas Indonesia %d", g.rand.IntBetween(2015, 2025))
}

func (g *Generator) image(prefix, caption string, i, maxSize int) MediaFile {
	id := g.newID()
	return MediaFile{
		ID:        id,
		FileName:  fmt.Sprintf("%s_image_%d.jpg", prefix, i+1),
		FilePath:  fmt.Sprintf("images/%s_image_%d_%s.jpg", prefix, i+1, id),
		FileType:  "image/jpeg",
		FileSize:  g.rand.IntBetween(100000, float64(maxSize)),
		Order:     i,
		Caption:   fmt.Sprintf("%s %d", caption, i+1),
		Copyright: g.copyright(),
	}
}

func (g *Generator) video(name, pathPrefix string, order int) MediaFile {
	id := g.newID()
	return MediaFile{
		ID:            id,
		FileName:      name,
		FilePath:      fmt.Sprintf("videos/%s_%s.mp4", pathPrefix, id),
		FileType:      "video/mp4",
		FileSize:      g.rand.IntBetween(1000000, 10000000),
		ThumbnailPath: fmt.Sprintf("video/thumbnails/video_thumbnail_%s.jpg", id),
		Order:         order,
		Caption:       "Video dokumentasi",
		Copyright:     g.copyright(),
	}
}

// files draws the file set of one item: 1-2 images for an article, 3-5
// images and a coin-flip video for a gallery, one video for a video.
func (g *Generator) files(t archive.MediaType) []MediaFile {
	var files []MediaFile
	switch t {
	case archive.MediaArtikel:
		for i, n := 0, g.rand.IntBetween(1, 2); i < n; i++ {
			files = append(files, g.image("artikel", "Gambar dokumentasi", i, 400000))
		}
	case archive.MediaGaleri:
		n := g.rand.IntBetween(3, 5)
		for i := 0; i < n; i++ {
			files = append(files, g.image("galeri", "Galeri foto", i, 500000))
		}
		if g.rand.Chance(0.5) {
			files = append(files, g.video("galeri_video.mp4", "galeri_video", n))
		}
	case archive.MediaVideo:
		files = append(files, g.video("video_konten.mp4", "video_konten", 0))
	}
	return files
}

// ReferenceCode builds "ID-UI-<unit codes>-<nnnn>": the reference codes of
// the chosen units in unit order, then count padded to four digits.
func ReferenceCode(units []Unit, unitIDs []string, count int) string {
	byID := make(map[string]Unit, len(units))
	for _, u := range units {
		byID[u.ID] = u
	}
	chosen := make([]Unit, 0, len(unitIDs))
	for _, id := range unitIDs {
		if u, ok := byID[id]; ok {
			chosen = append(chosen, u)
		}
	}
	slices.SortStableFunc(chosen, func(a, b Unit) int { return a.Order - b.Order })

	var codes strings.Builder
	for _, u := range chosen {
		codes.WriteString(u.ReferenceCode)
	}
	return fmt.Sprintf("ID-UI-%s-%04d", codes.String(), count)
}

// MediaExtent describes what an item holds, e.g. "1 tulisan dan 2 gambar".
func MediaExtent(t archive.MediaType, files []MediaFile) string {
	var images, videos int
	for _, f := range files {
		if f.IsVideo() {
			videos++
		} else if strings.HasPrefix(f.FileType, "image/") {
			images++
		}
	}
	switch t {
	case archive.MediaArtikel:
		if images == 0 {
			return "1 tulisan"
		}
		return fmt.Sprintf("1 tulisan dan %d gambar", images)
	case archive.MediaVideo:
		return "1 video"
	case archive.MediaGaleri:
		return fmt.Sprintf("%d gambar dan %d video", images, videos)
	}
	return fmt.Sprintf("%d media", len(files))
}

// WriteMediaItemsSQL writes the tag rows followed by every media item with
// its files, file links, unit approvals, arsip approval and tag links.
func WriteMediaItemsSQL(w io.Writer, tags []Tag, items []MediaItem, contributorID string, now time.Time) error {
	bw := bufio.NewWriter(w)
	q := pq.QuoteLiteral

	fmt.Fprintf(bw, "-- SQL script to generate %d media items for UI Heritage\n", len(items))
	fmt.Fprintf(bw, "-- Generated at: %s\n\n", now.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(bw, "-- Creating %d predefined tags\n", len(tags))
	for _, t := range tags {
		fmt.Fprintf(bw, "INSERT INTO tags (id, name, created_at, updated_at)\nVALUES (%s, %s, NOW(), NOW());\n",
			q(t.ID.String()), q(t.Name))
	}
	fmt.Fprintf(bw, "\n-- Creating %d media items\n\n", len(items))

	for i, it := range items {
		id := q(it.ID.String())
		fmt.Fprintf(bw, "-- Media Item %d\n", i+1)
		fmt.Fprintf(bw, `INSERT INTO media_items (
    id, title, description, type, contributor_id, status, category_id,
    event_date, reference_code, description_level, media_extent,
    archival_history, source, language, note, created_at, updated_at, status_updated_at
) VALUES (
    %s, %s, %s, %d, %s, %d, %s,
    %s, %s, %s, %s,
    %s, %s, %s, %s, NOW(), NOW(), %s
);
`,
			id, q(it.Title), q(it.Description), int(it.Type), q(contributorID), StatusApproved, q(it.CategoryID),
			q(it.EventDate.Format("2006-01-02")), q(it.ReferenceCode), q(descriptionLevel), q(it.MediaExtent),
			q(archivalHistory), q(archivalSource), q(archivalLang), q(archivalNote),
			q(it.StatusUpdatedAt.Format("2006-01-02 15:04:05")))

		for _, f := range it.Files {
			thumb := "NULL"
			if f.ThumbnailPath != "" {
				thumb = q(f.ThumbnailPath)
			}
			fmt.Fprintf(bw, "INSERT INTO files (id, file_name, file_path, file_type, file_size, thumbnail_path, created_at, updated_at)\nVALUES (%s, %s, %s, %s, %d, %s, NOW(), NOW());\n",
				q(f.ID.String()), q(f.FileName), q(f.FilePath), q(f.FileType), f.FileSize, thumb)
		}

		writeValues(bw, "INSERT INTO media_item_files (media_item_id, file_id, caption, \"order\", copyright, created_at, updated_at)",
			len(it.Files), func(j int) string {
				f := it.Files[j]
				return fmt.Sprintf("(%s, %s, %s, %d, %s, NOW(), NOW())", id, q(f.ID.String()), q(f.Caption), f.Order, q(f.Copyright))
			})
		writeValues(bw, "INSERT INTO media_item_unit_approvals (media_item_id, unit_id, status, created_at, updated_at)",
			len(it.UnitIDs), func(j int) string {
				return fmt.Sprintf("(%s, %s, %d, NOW(), NOW())", id, q(it.UnitIDs[j]), StatusApproved)
			})
		fmt.Fprintf(bw, "INSERT INTO media_item_arsip_approvals (media_item_id, status, created_at, updated_at)\nVALUES (%s, %d, NOW(), NOW());\n",
			id, StatusApproved)
		writeValues(bw, "INSERT INTO media_item_tags (media_item_id, tag_id, created_at, updated_at)",
			len(it.Tags), func(j int) string {
				return fmt.Sprintf("(%s, %s, NOW(), NOW())", id, q(it.Tags[j].ID.String()))
			})
		fmt.Fprint(bw, "\n")
	}
	return bw.Flush()
}

// writeValues writes a multi-row INSERT, or nothing when there are no rows.
func writeValues(w io.Writer, insert string, n int, row func(int) string) {
	if n == 0 {
		return
	}
	fmt.Fprintf(w, "%s\nVALUES\n", insert)
	for j := 0; j < n; j++ {
		sep := ",\n"
		if j == n-1 {
			sep = ";\n"
		}
		fmt.Fprintf(w, "%s%s", row(j), sep)
	}
}

// WriteMediaItems writes the media item script into dir and returns its path.
func WriteMediaItems(dir string, tags []Tag, items []MediaItem, contributorID string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, MediaItemsFile)
	err := writeFile(path, func(w io.Writer) error {
		return WriteMediaItemsSQL(w, tags, items, contributorID, now)
	})
	return path, err
}

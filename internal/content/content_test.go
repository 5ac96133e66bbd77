package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/heritageload/internal/archive"
	"github.com/FairForge/heritageload/internal/chance"
)

type replay struct {
	draws []float64
	i     int
}

func (r *replay) Float64() float64 {
	d := r.draws[r.i]
	r.i++
	return d
}

func TestTitle(t *testing.T) {
	s := New(chance.New(&replay{draws: []float64{0.0, 0.99}}))
	assert.Equal(t, "Dokumentasi Ilmiah Galeri UI Heritage", s.Title(archive.MediaGaleri))

	s = New(chance.Seeded(1))
	for i := 0; i < 100; i++ {
		title := s.Title(archive.MediaVideo)
		assert.True(t, strings.HasSuffix(title, " Video UI Heritage"), title)
		assert.Len(t, strings.Fields(title), 5)
	}
}

func TestDescription(t *testing.T) {
	t.Run("sentence tiers", func(t *testing.T) {
		// topic 0 with length 4, topic 1 with length 5, topic 2 with length 8
		s := New(chance.New(&replay{draws: []float64{0.0, 0.0, 0.2, 0.2, 0.4, 0.99}}))
		desc := s.Description(3)
		paragraphs := strings.Split(desc, "\n\n")
		require.Len(t, paragraphs, 3)

		assert.Equal(t, 4, strings.Count(paragraphs[0], ". "))
		assert.Contains(t, paragraphs[0], "Dokumentasi sejarah perkembangan universitas merupakan")
		assert.Equal(t, 5, strings.Count(paragraphs[1], ". "))
		assert.Contains(t, paragraphs[1], "diwariskan kepada generasi berikutnya")
		assert.Equal(t, 6, strings.Count(paragraphs[2], ". "))
		assert.Contains(t, paragraphs[2], "Kajian mendalam mengenai tokoh-tokoh")
	})

	t.Run("zero paragraphs", func(t *testing.T) {
		assert.Equal(t, "", New(chance.Seeded(1)).Description(0))
	})
}

func TestTags(t *testing.T) {
	s := New(chance.Seeded(9))
	for i := 0; i < 200; i++ {
		n := 1 + i%5
		tags := s.Tags(n)
		require.Len(t, tags, n)
		seen := map[string]bool{}
		for _, tag := range tags {
			assert.False(t, seen[tag], "duplicate tag %s", tag)
			seen[tag] = true
			assert.Contains(t, TagVocabulary, tag)
		}
	}
	assert.Len(t, s.Tags(50), len(TagVocabulary))
	assert.Equal(t, "penelitian", TagVocabulary[0])
}

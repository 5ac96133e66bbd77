// Package content synthesizes media item titles, descriptions and tags.
package content

import (
	"strings"

	"github.com/FairForge/heritageload/internal/archive"
	"github.com/FairForge/heritageload/internal/chance"
)

var (
	prefixes = []string{
		"Dokumentasi", "Sejarah", "Perkembangan", "Kegiatan", "Peristiwa", "Acara", "Pertemuan",
		"Seminar", "Workshop", "Riset", "Penelitian", "Inovasi", "Prestasi", "Pencapaian", "Karya",
		"Kolaborasi",
	}
	subjects = []string{
		"Mahasiswa", "Fakultas", "Universitas", "Dosen", "Akademik", "Kampus", "Pendidikan",
		"Pembelajaran", "Kebudayaan", "Ilmiah",
	}
	topics = []string{
		"sejarah perkembangan universitas",
		"peran kampus dalam pembangunan nasional",
		"tokoh-tokoh berpengaruh dalam komunitas akademik",
		"prestasi mahasiswa dan alumni",
		"inovasi penelitian dan pengabdian masyarakat",
	}

	// TagVocabulary is the pool media item tags are drawn from.
	TagVocabulary = []string{
		"penelitian", "akademik", "pendidikan", "ilmiah", "studi", "kajian",
		"acara", "seminar", "workshop", "konferensi", "pertemuan", "kegiatan",
	}
)

// Sentence templates; %s is the paragraph topic. The first four always
// appear, the fifth when the drawn length exceeds 4, the sixth past 5.
var (
	baseSentences = []string{
		"Dokumentasi %s merupakan bagian penting dari arsip UI Heritage. ",
		"Dalam konteks ini, terdapat berbagai aspek yang perlu diperhatikan terkait %s. ",
		"Selain itu, perkembangan %s juga memberikan gambaran tentang perjalanan institusi. ",
		"Universitas Indonesia terus berkomitmen untuk mendokumentasikan %s sebagai bagian dari sejarah. ",
	}
	fifthSentence = "Dengan demikian, pemahaman tentang %s dapat diwariskan kepada generasi berikutnya. "
	sixthSentence = "Kajian mendalam mengenai %s juga menjadi perhatian dari berbagai pihak. "
)

// Synthesizer draws content from one virtual user's random source.
type Synthesizer struct {
	rand *chance.Rand
}

// New creates a synthesizer.
func New(r *chance.Rand) *Synthesizer {
	return &Synthesizer{rand: r}
}

// Title returns "<prefix> <subject> <type> UI Heritage".
func (s *Synthesizer) Title(t archive.MediaType) string {
	return chance.Pick(s.rand, prefixes) + " " + chance.Pick(s.rand, subjects) + " " +
		t.DisplayName() + " UI Heritage"
}

// Description returns n paragraphs separated by a blank line.
func (s *Synthesizer) Description(n int) string {
	paragraphs := make([]string, 0, n)
	for i := 0; i < n; i++ {
		paragraphs = append(paragraphs, s.paragraph())
	}
	return strings.Join(paragraphs, "\n\n")
}

func (s *Synthesizer) paragraph() string {
	topic := chance.Pick(s.rand, topics)
	length := s.rand.IntBetween(4, 8)

	var b strings.Builder
	for _, tmpl := range baseSentences {
		b.WriteString(strings.Replace(tmpl, "%s", topic, 1))
	}
	if length > 4 {
		b.WriteString(strings.Replace(fifthSentence, "%s", topic, 1))
	}
	if length > 5 {
		b.WriteString(strings.Replace(sixthSentence, "%s", topic, 1))
	}
	return b.String()
}

// Tags returns n distinct tags, fewer if the vocabulary runs out.
func (s *Synthesizer) Tags(n int) []string {
	return chance.Sample(s.rand, TagVocabulary, n)
}

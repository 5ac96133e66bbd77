// Package seed generates database seed data: the contributor accounts a
// contributor run logs in with, and the approved media items a reader run
// browses.
package seed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"

	"github.com/FairForge/heritageload/internal/archive"
	"github.com/FairForge/heritageload/internal/chance"
	"github.com/FairForge/heritageload/internal/content"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ContributorRole is the role id of contributor accounts.
const ContributorRole = 3

// DefaultCount is the number of contributors generated by default.
const DefaultCount = 200

// Output file names.
const (
	InsertFile = "insert_contributors.sql"
	DeleteFile = "delete_contributors.sql"
	LoginsFile = "contributor_logins.json"
)

// ErrNoActiveUnits is returned when every unit is deleted.
var ErrNoActiveUnits = errors.New("seed: no active units")

var (
	firstNames = []string{
		"Budi", "Siti", "Agus", "Dewi", "Joko", "Rina", "Wayan", "Putri", "Ahmad", "Sri",
		"Dimas", "Indah", "Bambang", "Lestari", "Putra", "Rini", "Adi", "Nita", "Hendra", "Maya",
	}
	lastNames = []string{
		"Wijaya", "Susanto", "Hartono", "Santoso", "Kusuma", "Wati", "Setiawan", "Purnama", "Permana", "Maulana",
		"Hidayat", "Nugraha", "Pratama", "Saputra", "Utama", "Nugroho", "Suryanto", "Irawan", "Gunawan", "Heriyanto",
	}
	positions = []string{
		"Mahasiswa", "Dosen", "Asisten Dosen", "Peneliti", "Staff", "Koordinator Unit", "Kepala Program",
	}
)

// Unit is one row of the units export.
type Unit struct {
	ID            string  `json:"id"`
	Name          string  `json:"name,omitempty"`
	Order         int     `json:"order,omitempty"`
	ReferenceCode string  `json:"reference_code,omitempty"`
	IsActive      *bool   `json:"is_active,omitempty"`
	DeletedAt     *string `json:"deleted_at"`
}

// LoadUnits reads a units export (a JSON array).
func LoadUnits(path string) ([]Unit, error) {
	return loadExport[Unit](path, "units")
}

func loadExport[T any](path, what string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", what, err)
	}
	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse %s: %w", what, err)
	}
	return rows, nil
}

// ActiveUnits drops deleted units.
func ActiveUnits(units []Unit) []Unit {
	out := make([]Unit, 0, len(units))
	for _, u := range units {
		if u.DeletedAt == nil && u.ID != "" {
			out = append(out, u)
		}
	}
	return out
}

// Contributor is one generated account.
type Contributor struct {
	UserID        uuid.UUID
	CredentialID  uuid.UUID
	Username      string
	FullName      string
	Email         string
	UnitID        string
	Position      string
	PhoneNumber   string
	PersonalEmail string
	Login         archive.Contributor
}

// Generator draws contributors and media items. The zero value is not
// usable; use New.
type Generator struct {
	rand    *chance.Rand
	content *content.Synthesizer
	newID   func() uuid.UUID
}

// New returns a generator over rnd.
func New(rnd *chance.Rand) *Generator {
	return &Generator{rand: rnd, content: content.New(rnd), newID: uuid.New}
}

// Generate draws n contributors spread over the active units.
func (g *Generator) Generate(units []Unit, n int) ([]Contributor, error) {
	active := ActiveUnits(units)
	if len(active) == 0 {
		return nil, ErrNoActiveUnits
	}
	used := make(map[string]bool, n)
	out := make([]Contributor, 0, n)

	for i := 0; i < n; i++ {
		unit := chance.Pick(g.rand, active)
		first := strings.ToLower(chance.Pick(g.rand, firstNames))
		last := strings.ToLower(chance.Pick(g.rand, lastNames))

		username := fmt.Sprintf("%s.%s%d", first, last, i+1000)
		for used[username] {
			username = fmt.Sprintf("%s.%s%d", first, last, g.rand.IntBetween(1000, 9999))
		}
		used[username] = true

		fullName := capitalize(first) + " " + capitalize(last)
		position := chance.Pick(g.rand, positions)
		c := Contributor{
			UserID:       g.newID(),
			CredentialID: g.newID(),
			Username:     username,
			FullName:     fullName,
			Email:        username + "@ui.ac.id",
			UnitID:       unit.ID,
			Position:     position,
			PhoneNumber: fmt.Sprintf("+62%d%d%d",
				g.rand.IntBetween(8, 9), g.rand.IntBetween(1, 9), g.rand.IntBetween(1000000, 99999999)),
			PersonalEmail: fmt.Sprintf("%s_%d@gmail.com", username, g.rand.IntBetween(1, 999)),
		}
		c.Login = archive.Contributor{
			User:      username,
			LdapCN:    fullName,
			KdOrg:     fmt.Sprintf("0%d.00.%d.0%d", g.rand.IntBetween(1, 9), g.rand.IntBetween(10, 20), g.rand.IntBetween(1, 9)),
			PeranUser: strings.ToLower(position),
			NPM:       fmt.Sprintf("21%d", g.rand.IntBetween(10000000, 99999999)),
			Nama:      fullName,
		}
		out = append(out, c)
	}
	return out, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// WriteInsertSQL writes one transaction inserting every user and its
// credential row.
func WriteInsertSQL(w io.Writer, cs []Contributor, now time.Time) error {
	bw := bufio.NewWriter(w)
	ts := pq.QuoteLiteral(now.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(bw, "-- SQL script to insert %d contributor users\n", len(cs))
	fmt.Fprint(bw, "BEGIN TRANSACTION;\n\n")
	for _, c := range cs {
		fmt.Fprintf(bw, `INSERT INTO users (
    id, username, full_name, email, role, unit_id, position,
    phone_number, personal_email, created_at, updated_at, deleted_at
) VALUES (
    %s, %s, %s, %s, %d, %s, %s, %s, %s, %s, %s, NULL
);
`,
			pq.QuoteLiteral(c.UserID.String()),
			pq.QuoteLiteral(c.Username),
			pq.QuoteLiteral(c.FullName),
			pq.QuoteLiteral(c.Email),
			ContributorRole,
			pq.QuoteLiteral(c.UnitID),
			pq.QuoteLiteral(c.Position),
			pq.QuoteLiteral(c.PhoneNumber),
			pq.QuoteLiteral(c.PersonalEmail),
			ts, ts)
		fmt.Fprintf(bw, `INSERT INTO user_credentials (
    id, user_id, hashed_password, password_changed_at,
    created_at, updated_at, deleted_at
) VALUES (
    %s, %s, NULL, NULL, %s, %s, NULL
);

`,
			pq.QuoteLiteral(c.CredentialID.String()),
			pq.QuoteLiteral(c.UserID.String()),
			ts, ts)
	}
	fmt.Fprint(bw, "COMMIT;\n")
	return bw.Flush()
}

// WriteDeleteSQL writes the transaction removing the generated users,
// credentials first.
func WriteDeleteSQL(w io.Writer, cs []Contributor) error {
	ids := make([]string, 0, len(cs))
	for _, c := range cs {
		ids = append(ids, pq.QuoteLiteral(c.UserID.String()))
	}
	list := strings.Join(ids, ", ")

	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, "-- SQL script to delete the contributor users\n")
	fmt.Fprint(bw, "BEGIN TRANSACTION;\n\n")
	fmt.Fprint(bw, "-- Delete all user credentials\n")
	fmt.Fprintf(bw, "DELETE FROM user_credentials WHERE user_id IN (%s);\n\n", list)
	fmt.Fprint(bw, "-- Delete all users\n")
	fmt.Fprintf(bw, "DELETE FROM users WHERE id IN (%s);\n\n", list)
	fmt.Fprint(bw, "COMMIT;\n")
	return bw.Flush()
}

// WriteLogins writes the login fixture read by the contributor run.
func WriteLogins(w io.Writer, cs []Contributor) error {
	logins := make([]archive.Contributor, 0, len(cs))
	for _, c := range cs {
		logins = append(logins, c.Login)
	}
	data, err := json.MarshalIndent(logins, "", "  ")
	if err != nil {
		return fmt.Errorf("encode logins: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// Files are the paths written by WriteAll.
type Files struct {
	Insert string
	Delete string
	Logins string
}

// WriteAll writes the three outputs into dir.
func WriteAll(dir string, cs []Contributor, now time.Time) (Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("create output dir: %w", err)
	}
	files := Files{
		Insert: filepath.Join(dir, InsertFile),
		Delete: filepath.Join(dir, DeleteFile),
		Logins: filepath.Join(dir, LoginsFile),
	}
	writers := []struct {
		path  string
		write func(io.Writer) error
	}{
		{files.Insert, func(w io.Writer) error { return WriteInsertSQL(w, cs, now) }},
		{files.Delete, func(w io.Writer) error { return WriteDeleteSQL(w, cs) }},
		{files.Logins, func(w io.Writer) error { return WriteLogins(w, cs) }},
	}
	for _, wr := range writers {
		if err := writeFile(wr.path, wr.write); err != nil {
			return Files{}, err
		}
	}
	return files, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

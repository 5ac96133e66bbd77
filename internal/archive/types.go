// internal/archive/types.go
package archive

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// MediaType is the archive's media item type code.
type MediaType int

const (
	MediaArtikel MediaType = 1
	MediaVideo   MediaType = 2
	MediaGaleri  MediaType = 3
)

// DisplayName is the type label used in synthesized titles.
func (t MediaType) DisplayName() string {
	switch t {
	case MediaArtikel:
		return "Artikel"
	case MediaVideo:
		return "Video"
	case MediaGaleri:
		return "Galeri"
	default:
		return fmt.Sprintf("Type%d", int(t))
	}
}

func (t MediaType) String() string { return t.DisplayName() }

// ID accepts both string and numeric identifiers on the wire.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return fmt.Errorf("archive: bad id %s: %w", b, err)
		}
		*id = ID(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return fmt.Errorf("archive: bad id %s", b)
	}
	*id = ID(b)
	return nil
}

// ReferenceItem is a unit or category listing entry.
type ReferenceItem struct {
	ID        ID         `json:"id"`
	Name      string     `json:"name,omitempty"`
	IsActive  bool       `json:"isActive"`
	DeletedAt *time.Time `json:"deletedAt"`
}

// Eligible reports whether the item may be used by a scenario.
func (r ReferenceItem) Eligible() bool {
	return r.IsActive && r.DeletedAt == nil
}

// MediaItem is the part of a media item the scenarios read back.
type MediaItem struct {
	ID    ID        `json:"id"`
	Title string    `json:"title,omitempty"`
	Type  MediaType `json:"type,omitempty"`
}

// Contributor is one SSO identity. The whole object is the login payload:
// keys outside the named fields are kept in Extra and sent back as read.
type Contributor struct {
	User      string `json:"user"`
	LdapCN    string `json:"ldap_cn"`
	KdOrg     string `json:"kd_org"`
	PeranUser string `json:"peran_user"`
	NPM       string `json:"npm"`
	Nama      string `json:"nama"`

	Extra map[string]any `json:"-"`
}

var contributorKeys = []string{"user", "ldap_cn", "kd_org", "peran_user", "npm", "nama"}

func (c Contributor) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+len(contributorKeys))
	for k, v := range c.Extra {
		out[k] = v
	}
	out["user"] = c.User
	out["ldap_cn"] = c.LdapCN
	out["kd_org"] = c.KdOrg
	out["peran_user"] = c.PeranUser
	out["npm"] = c.NPM
	out["nama"] = c.Nama
	return json.Marshal(out)
}

func (c *Contributor) UnmarshalJSON(data []byte) error {
	type plain Contributor
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range contributorKeys {
		delete(all, k)
	}
	if len(all) > 0 {
		p.Extra = all
	}
	*c = Contributor(p)
	return nil
}

// User is the logged-in account.
type User struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
}

// UploadSession is the server's answer to a chunked upload initiation.
type UploadSession struct {
	UploadID  string `json:"uploadId"`
	ChunkSize int64  `json:"chunkSize"`
	TotalSize int64  `json:"totalSize"`
}

// UploadedFile is the file metadata returned by a direct upload or a
// completed chunked upload.
type UploadedFile struct {
	ID            ID     `json:"id"`
	FileName      string `json:"fileName"`
	FilePath      string `json:"filePath"`
	FileType      string `json:"fileType"`
	ThumbnailPath string `json:"thumbnailPath,omitempty"`
}

// FileEntry links an uploaded file into a media item.
type FileEntry struct {
	FileID    ID     `json:"fileId"`
	Caption   string `json:"caption"`
	Copyright string `json:"copyright"`
	Order     int    `json:"order"`
}

// MediaItemDraft is the creation payload for POST /media-items.
type MediaItemDraft struct {
	Title           string      `json:"title"`
	Type            MediaType   `json:"type"`
	CategoryID      ID          `json:"categoryId"`
	EventYear       string      `json:"eventYear"`
	EventMonth      string      `json:"eventMonth"`
	EventDay        string      `json:"eventDay"`
	ArchivalHistory string      `json:"archivalHistory"`
	Source          string      `json:"source"`
	Language        string      `json:"language"`
	Note            string      `json:"note"`
	Description     string      `json:"description,omitempty"`
	Files           []FileEntry `json:"files"`
	Tags            []string    `json:"tags"`
	UnitIDs         []ID        `json:"unitIds"`
}

// EventDate is the zero-padded calendar date sent with uploads and drafts.
type EventDate struct {
	Year  string
	Month string
	Day   string
}

// NewEventDate formats t in its own location.
func NewEventDate(t time.Time) EventDate {
	return EventDate{
		Year:  strconv.Itoa(t.Year()),
		Month: fmt.Sprintf("%02d", int(t.Month())),
		Day:   fmt.Sprintf("%02d", t.Day()),
	}
}

// Upload is a file sent through the direct upload endpoint.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
	Date        EventDate
}

// InitiateRequest declares a large file before its chunks are sent.
type InitiateRequest struct {
	FileName string
	FileSize int64
	FileType string
	Date     EventDate
}

// internal/stub/handlers.go
package stub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FairForge/heritageload/internal/archive"
)

// maxMemory bounds the multipart parser's in-memory buffer.
const maxMemory = 32 << 20

func withClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

func claimsFrom(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}

func pageParams(r *http.Request) (page, size int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	size, _ = strconv.Atoi(r.URL.Query().Get("pageSize"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	return page, size
}

func paginate[T any](items []T, page, size int) []T {
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func (s *Server) listUnits(w http.ResponseWriter, r *http.Request) {
	const route = "GET /web/units"
	if s.inject(w, r, route) {
		return
	}
	page, size := pageParams(r)
	s.mu.Lock()
	units := paginate(s.units, page, size)
	s.mu.Unlock()
	s.respond(w, r, route, http.StatusOK, units)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	const route = "GET /web/categories"
	if s.inject(w, r, route) {
		return
	}
	page, size := pageParams(r)
	s.mu.Lock()
	cats := paginate(s.categories, page, size)
	if s.faults.EmptyCategories {
		cats = []archive.ReferenceItem{}
	}
	s.mu.Unlock()
	s.respond(w, r, route, http.StatusOK, cats)
}

func (s *Server) searchMediaItems(w http.ResponseWriter, r *http.Request) {
	const route = "GET /media-items"
	if s.inject(w, r, route) {
		return
	}
	page, size := pageParams(r)
	want, _ := strconv.Atoi(r.URL.Query().Get("types"))

	s.mu.Lock()
	var found []archive.MediaItem
	for _, id := range s.order {
		it := s.items[id]
		if want != 0 && int(it.Type) != want {
			continue
		}
		found = append(found, archive.MediaItem{ID: it.ID, Title: it.Title, Type: it.Type})
	}
	s.mu.Unlock()
	s.respond(w, r, route, http.StatusOK, paginate(found, page, size))
}

func (s *Server) getMediaItem(w http.ResponseWriter, r *http.Request) {
	const route = "GET /media-items/{id}"
	if s.inject(w, r, route) {
		return
	}
	id := archive.ID(chi.URLParam(r, "id"))
	s.mu.Lock()
	it, ok := s.items[id]
	var item archive.MediaItem
	if ok {
		item = archive.MediaItem{ID: it.ID, Title: it.Title, Type: it.Type}
	}
	s.mu.Unlock()
	if !ok {
		s.fail(w, r, route, http.StatusNotFound, "media item not found")
		return
	}
	s.respond(w, r, route, http.StatusOK, item)
}

func (s *Server) incrementView(w http.ResponseWriter, r *http.Request) {
	const route = "POST /media-items/{id}/view"
	if s.inject(w, r, route) {
		return
	}
	id := archive.ID(chi.URLParam(r, "id"))
	s.mu.Lock()
	it, ok := s.items[id]
	views := 0
	if ok {
		it.Views++
		views = it.Views
	}
	s.mu.Unlock()
	if !ok {
		s.fail(w, r, route, http.StatusNotFound, "media item not found")
		return
	}
	s.respond(w, r, route, http.StatusOK, map[string]int{"views": views})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	const route = "POST /auth/sso-login"
	if s.inject(w, r, route) {
		return
	}
	if r.Header.Get("X-DEV-API-KEY") != s.opts.APIKey {
		s.fail(w, r, route, http.StatusUnauthorized, "invalid api key")
		return
	}
	s.mu.Lock()
	failLogin := s.faults.FailLogin
	s.mu.Unlock()
	if failLogin {
		s.fail(w, r, route, http.StatusInternalServerError, "sso unavailable")
		return
	}

	var who archive.Contributor
	if err := json.NewDecoder(r.Body).Decode(&who); err != nil {
		s.fail(w, r, route, http.StatusBadRequest, "invalid login payload")
		return
	}
	if who.User == "" {
		s.fail(w, r, route, http.StatusBadRequest, "user is required")
		return
	}

	s.mu.Lock()
	userID, ok := s.users[who.User]
	if !ok {
		userID = uuid.NewString()
		s.users[who.User] = userID
	}
	s.mu.Unlock()

	token, err := s.tokens.issue(userID, who.User)
	if err != nil {
		s.fail(w, r, route, http.StatusInternalServerError, "issue token")
		return
	}
	s.respond(w, r, route, http.StatusOK, map[string]interface{}{
		"accessToken": token,
		"user":        archive.User{ID: archive.ID(userID), Username: who.User},
	})
}

func formFile(r *http.Request, field string) (name string, data []byte, err error) {
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	data, err = io.ReadAll(f)
	return hdr.Filename, data, err
}

// uploadFile serves both the direct upload and the chunked initiation,
// which is told apart by initialize=true.
func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	const route = "POST /files/upload"
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		s.fail(w, r, route, http.StatusBadRequest, "invalid multipart form")
		return
	}
	if s.inject(w, r, route) {
		return
	}
	name, data, err := formFile(r, "file")
	if err != nil {
		s.fail(w, r, route, http.StatusBadRequest, "file is required")
		return
	}
	if r.FormValue("initialize") == "true" {
		s.initiate(w, r, route)
		return
	}

	f := archive.UploadedFile{
		ID:       archive.ID(uuid.NewString()),
		FileName: name,
		FilePath: "/uploads/" + name,
		FileType: mimeOf(r, name),
	}
	if len(data) == 0 {
		s.fail(w, r, route, http.StatusBadRequest, "empty file")
		return
	}
	s.mu.Lock()
	s.files[f.ID] = f
	s.mu.Unlock()
	s.respond(w, r, route, http.StatusOK, f)
}

func mimeOf(r *http.Request, name string) string {
	if fhs := r.MultipartForm.File["file"]; len(fhs) > 0 {
		if ct := fhs[0].Header.Get("Content-Type"); ct != "" {
			return ct
		}
	}
	if strings.HasSuffix(name, ".mp4") {
		return "video/mp4"
	}
	return "application/octet-stream"
}

func (s *Server) initiate(w http.ResponseWriter, r *http.Request, route string) {
	size, err := strconv.ParseInt(r.FormValue("fileSize"), 10, 64)
	if err != nil || size <= 0 || r.FormValue("fileName") == "" {
		s.fail(w, r, route, http.StatusBadRequest, "fileName and fileSize are required")
		return
	}
	owner := ""
	if c := claimsFrom(r.Context()); c != nil {
		owner = c.Subject
	}

	s.mu.Lock()
	id := s.faults.UploadID
	s.faults.UploadID = ""
	if id == "" {
		id = uuid.NewString()
	}
	s.sessions[id] = &session{
		id:        id,
		owner:     owner,
		fileName:  r.FormValue("fileName"),
		fileType:  r.FormValue("fileType"),
		totalSize: size,
	}
	s.mu.Unlock()

	s.respond(w, r, route, http.StatusOK, archive.UploadSession{
		UploadID:  id,
		ChunkSize: DefaultChunkSize,
		TotalSize: size,
	})
}

func (s *Server) uploadChunk(w http.ResponseWriter, r *http.Request) {
	const route = "POST /files/upload/chunk"
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		s.fail(w, r, route, http.StatusBadRequest, "invalid multipart form")
		return
	}
	if s.inject(w, r, route) {
		return
	}
	n, err := strconv.Atoi(r.FormValue("chunkNumber"))
	if err != nil {
		s.fail(w, r, route, http.StatusBadRequest, "chunkNumber is required")
		return
	}
	if _, _, err := formFile(r, "chunk"); err != nil {
		s.fail(w, r, route, http.StatusBadRequest, "chunk is required")
		return
	}

	s.mu.Lock()
	sess, ok := s.sessions[r.FormValue("uploadId")]
	failAt := s.faults.FailChunk
	var status int
	var msg string
	switch {
	case !ok:
		status, msg = http.StatusNotFound, "unknown upload session"
	case failAt != nil && *failAt == n:
		status, msg = http.StatusInternalServerError, "injected chunk failure"
	case n != len(sess.chunks):
		status, msg = http.StatusConflict, fmt.Sprintf("expected chunk %d, got %d", len(sess.chunks), n)
	default:
		sess.chunks = append(sess.chunks, n)
	}
	s.mu.Unlock()

	if status != 0 {
		s.fail(w, r, route, status, msg)
		return
	}
	s.respond(w, r, route, http.StatusOK, map[string]int{"chunkNumber": n})
}

func (s *Server) completeUpload(w http.ResponseWriter, r *http.Request) {
	const route = "POST /files/upload/complete"
	if err := r.ParseForm(); err != nil {
		s.fail(w, r, route, http.StatusBadRequest, "invalid form")
		return
	}
	if s.inject(w, r, route) {
		return
	}
	id := r.PostFormValue("uploadId")

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		s.fail(w, r, route, http.StatusNotFound, "unknown upload session")
		return
	}
	if len(sess.chunks) == 0 {
		s.fail(w, r, route, http.StatusConflict, "no chunks received")
		return
	}

	f := archive.UploadedFile{
		ID:            archive.ID(uuid.NewString()),
		FileName:      sess.fileName,
		FilePath:      "/uploads/" + sess.fileName,
		FileType:      sess.fileType,
		ThumbnailPath: "/thumbnails/" + id + ".jpg",
	}
	s.mu.Lock()
	s.files[f.ID] = f
	s.mu.Unlock()
	s.respond(w, r, route, http.StatusOK, f)
}

func (s *Server) createMediaItem(w http.ResponseWriter, r *http.Request) {
	const route = "POST /media-items"
	if s.inject(w, r, route) {
		return
	}
	var d archive.MediaItemDraft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		s.fail(w, r, route, http.StatusBadRequest, "invalid media item payload")
		return
	}
	if msg := s.validateDraft(d); msg != "" {
		s.fail(w, r, route, http.StatusUnprocessableEntity, msg)
		return
	}
	s.mu.Lock()
	id := s.storeItem(d)
	s.mu.Unlock()
	s.respond(w, r, route, http.StatusCreated, archive.MediaItem{ID: id, Title: d.Title, Type: d.Type})
}

func (s *Server) validateDraft(d archive.MediaItemDraft) string {
	switch {
	case d.Title == "":
		return "title is required"
	case d.Type < archive.MediaArtikel || d.Type > archive.MediaGaleri:
		return "unknown type"
	case d.CategoryID == "":
		return "categoryId is required"
	case len(d.Files) == 0:
		return "at least one file is required"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range d.Files {
		if _, ok := s.files[f.FileID]; !ok {
			return fmt.Sprintf("unknown file %s", f.FileID)
		}
	}
	return ""
}

// Package stub is an in-memory fake of the archive API. It backs the
// end-to-end tests and local dry runs, records every call in order and can
// inject faults per route.
package stub

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/FairForge/heritageload/internal/archive"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultChunkSize is the chunk size announced by initiate.
const DefaultChunkSize = 1 << 20

// Options configures a Server.
type Options struct {
	BasePath string
	APIKey   string
	Secret   []byte
	TokenTTL time.Duration
	Logger   *zap.Logger
	Now      func() time.Time
}

// Faults are injected failures. The zero value injects nothing.
type Faults struct {
	// FailChunk answers 500 for this chunk number when set.
	FailChunk *int

	// FailLogin answers 500 to every login.
	FailLogin bool

	// EmptyCategories lists no categories.
	EmptyCategories bool

	// Status forces a status for a route, keyed "METHOD /pattern",
	// e.g. "GET /web/units".
	Status map[string]int

	// UploadID replaces the generated id of the next initiated session.
	UploadID string
}

// Call is one recorded request.
type Call struct {
	Route  string
	Path   string
	Query  string
	Form   map[string]string
	Files  map[string]int
	Status int
	At     time.Time
}

type session struct {
	id        string
	owner     string
	fileName  string
	fileType  string
	totalSize int64
	chunks    []int
}

type mediaItem struct {
	archive.MediaItemDraft
	ID    archive.ID
	Views int
}

// Server is safe for concurrent use.
type Server struct {
	opts   Options
	tokens tokens
	router chi.Router
	logger *zap.Logger

	mu         sync.Mutex
	faults     Faults
	units      []archive.ReferenceItem
	categories []archive.ReferenceItem
	users      map[string]string // username -> user id
	sessions   map[string]*session
	files      map[archive.ID]archive.UploadedFile
	items      map[archive.ID]*mediaItem
	order      []archive.ID
	calls      []Call
}

// New creates a stub with a small default reference data set.
func New(opts Options) *Server {
	if opts.BasePath == "" {
		opts.BasePath = "/api/v1"
	}
	if opts.APIKey == "" {
		opts.APIKey = "stub-api-key"
	}
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("stub-secret")
	}
	if opts.TokenTTL == 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		opts:     opts,
		tokens:   tokens{secret: opts.Secret, ttl: opts.TokenTTL, now: opts.Now},
		logger:   opts.Logger.Named("stub"),
		users:    make(map[string]string),
		sessions: make(map[string]*session),
		files:    make(map[archive.ID]archive.UploadedFile),
		items:    make(map[archive.ID]*mediaItem),
	}
	s.units, s.categories = defaultReference(opts.Now())

	r := chi.NewRouter()
	r.Route(opts.BasePath, func(r chi.Router) {
		r.Get("/web/units", s.listUnits)
		r.Get("/web/categories", s.listCategories)

		r.Get("/media-items", s.searchMediaItems)
		r.Get("/media-items/{id}", s.getMediaItem)
		r.Post("/media-items/{id}/view", s.incrementView)

		r.Post("/auth/sso-login", s.login)

		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)
			r.Post("/files/upload", s.uploadFile)
			r.Post("/files/upload/chunk", s.uploadChunk)
			r.Post("/files/upload/complete", s.completeUpload)
			r.Post("/media-items", s.createMediaItem)
		})
	})
	s.router = r
	return s
}

func defaultReference(now time.Time) (units, categories []archive.ReferenceItem) {
	deleted := now.Add(-24 * time.Hour)
	for i, name := range []string{"Fakultas Ilmu Komputer", "Fakultas Teknik", "Fakultas Hukum", "Perpustakaan UI"} {
		units = append(units, archive.ReferenceItem{ID: archive.ID(uuid.NewString()), Name: name, IsActive: i != 3})
	}
	units = append(units, archive.ReferenceItem{ID: archive.ID(uuid.NewString()), Name: "Unit Lama", IsActive: true, DeletedAt: &deleted})
	for _, name := range []string{"Sejarah", "Kegiatan Mahasiswa", "Penelitian"} {
		categories = append(categories, archive.ReferenceItem{ID: archive.ID(uuid.NewString()), Name: name, IsActive: true})
	}
	return units, categories
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// APIKey returns the key login requires.
func (s *Server) APIKey() string { return s.opts.APIKey }

// SetFaults replaces the injected faults.
func (s *Server) SetFaults(f Faults) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = f
}

// SetReference replaces the unit and category listings.
func (s *Server) SetReference(units, categories []archive.ReferenceItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units = append([]archive.ReferenceItem(nil), units...)
	s.categories = append([]archive.ReferenceItem(nil), categories...)
}

// AddMediaItem stores a browsable item and returns its id.
func (s *Server) AddMediaItem(title string, t archive.MediaType) archive.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeItem(archive.MediaItemDraft{Title: title, Type: t})
}

func (s *Server) storeItem(d archive.MediaItemDraft) archive.ID {
	id := archive.ID(uuid.NewString())
	s.items[id] = &mediaItem{MediaItemDraft: d, ID: id}
	s.order = append(s.order, id)
	return id
}

// Calls returns every recorded call in arrival order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the recorded calls of one route, e.g. "POST /files/upload/chunk".
func (s *Server) CallsTo(route string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Route == route {
			out = append(out, c)
		}
	}
	return out
}

// Drafts returns the created media items' payloads in creation order.
func (s *Server) Drafts() []archive.MediaItemDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []archive.MediaItemDraft
	for _, id := range s.order {
		if it := s.items[id]; len(it.Files) > 0 {
			out = append(out, it.MediaItemDraft)
		}
	}
	return out
}

// Views returns the view count of an item.
func (s *Server) Views(id archive.ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[id]; ok {
		return it.Views
	}
	return 0
}

func (s *Server) record(r *http.Request, route string, status int) {
	c := Call{
		Route:  route,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Status: status,
		At:     s.opts.Now(),
	}
	if r.MultipartForm != nil {
		c.Form = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				c.Form[k] = v[0]
			}
		}
		c.Files = map[string]int{}
		for k, fhs := range r.MultipartForm.File {
			if len(fhs) > 0 {
				c.Files[k] = int(fhs[0].Size)
			}
		}
	} else if len(r.PostForm) > 0 {
		c.Form = map[string]string{}
		for k, v := range r.PostForm {
			c.Form[k] = v[0]
		}
	}
	s.mu.Lock()
	s.calls = append(s.calls, c)
	s.mu.Unlock()
	s.logger.Debug("request", zap.String("route", route), zap.Int("status", status))
}

// forced returns the status injected for route, or 0.
func (s *Server) forced(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.faults.Status[route]
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, route string, status int, data interface{}) {
	s.record(r, route, status)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]interface{}{"data": data}
	if status >= 400 {
		body = map[string]interface{}{"error": http.StatusText(status)}
		if msg, ok := data.(string); ok && msg != "" {
			body["error"] = msg
		}
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, route string, status int, msg string) {
	s.respond(w, r, route, status, msg)
}

// inject answers with a forced status when one is configured.
func (s *Server) inject(w http.ResponseWriter, r *http.Request, route string) bool {
	if status := s.forced(route); status != 0 {
		s.fail(w, r, route, status, "injected fault")
		return true
	}
	return false
}

type claimsKey struct{}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			s.fail(w, r, r.Method+" "+strings.TrimPrefix(r.URL.Path, s.opts.BasePath), http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := s.tokens.validate(raw)
		if err != nil {
			s.fail(w, r, r.Method+" "+strings.TrimPrefix(r.URL.Path, s.opts.BasePath), http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

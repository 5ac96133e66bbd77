package stub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/heritageload/internal/archive"
)

func setup(t *testing.T) (*Server, *archive.Client) {
	t.Helper()
	s := New(Options{APIKey: "k"})
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return s, archive.New(archive.Config{BaseURL: srv.URL + "/api/v1", APIKey: "k", Timeout: 5 * time.Second})
}

func login(t *testing.T, c *archive.Client) *archive.Session {
	t.Helper()
	sess, err := c.Login(context.Background(), archive.Contributor{User: "user1", Nama: "User Satu"})
	require.NoError(t, err)
	return sess
}

func TestServer_Reference(t *testing.T) {
	s, c := setup(t)
	ctx := context.Background()

	units, err := c.ListUnits(ctx, 1, 50)
	require.NoError(t, err)
	require.Len(t, units, 5)
	eligible := 0
	for _, u := range units {
		if u.Eligible() {
			eligible++
		}
	}
	assert.Equal(t, 3, eligible)

	page2, err := c.ListUnits(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, units[2:4], page2)

	s.SetFaults(Faults{EmptyCategories: true})
	cats, err := c.ListCategories(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, cats)

	s.SetFaults(Faults{Status: map[string]int{"GET /web/units": http.StatusServiceUnavailable}})
	_, err = c.ListUnits(ctx, 1, 50)
	assert.Equal(t, http.StatusServiceUnavailable, archive.StatusOf(err))

	assert.Len(t, s.CallsTo("GET /web/units"), 3)
}

func TestServer_Browse(t *testing.T) {
	s, c := setup(t)
	ctx := context.Background()
	article := s.AddMediaItem("Sejarah Kampus", archive.MediaArtikel)
	s.AddMediaItem("Wisuda", archive.MediaVideo)

	all, err := c.SearchMediaItems(ctx, "page=1&pageSize=50")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	videos, err := c.SearchMediaItems(ctx, "types=2&search=arsip")
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "Wisuda", videos[0].Title)

	item, err := c.GetMediaItem(ctx, article)
	require.NoError(t, err)
	assert.Equal(t, archive.MediaArtikel, item.Type)

	require.NoError(t, c.IncrementView(ctx, article))
	require.NoError(t, c.IncrementView(ctx, article))
	assert.Equal(t, 2, s.Views(article))

	_, err = c.GetMediaItem(ctx, "missing")
	assert.Equal(t, http.StatusNotFound, archive.StatusOf(err))
}

func TestServer_Login(t *testing.T) {
	t.Run("issues a verifiable token", func(t *testing.T) {
		_, c := setup(t)
		sess := login(t, c)
		assert.Equal(t, "user1", sess.User.Username)
		assert.Equal(t, string(sess.User.ID), sess.Subject)
		assert.True(t, sess.ExpiresAt.After(time.Now()))

		again := login(t, c)
		assert.Equal(t, sess.User.ID, again.User.ID)
	})

	t.Run("rejects a wrong api key", func(t *testing.T) {
		s, _ := setup(t)
		srv := httptest.NewServer(s)
		defer srv.Close()
		c := archive.New(archive.Config{BaseURL: srv.URL + "/api/v1", APIKey: "wrong"})
		_, err := c.Login(context.Background(), archive.Contributor{User: "user1"})
		assert.Equal(t, http.StatusUnauthorized, archive.StatusOf(err))
	})

	t.Run("fault", func(t *testing.T) {
		s, c := setup(t)
		s.SetFaults(Faults{FailLogin: true})
		_, err := c.Login(context.Background(), archive.Contributor{User: "user1"})
		assert.Equal(t, http.StatusInternalServerError, archive.StatusOf(err))
	})
}

func TestServer_ProtectedRoutesNeedToken(t *testing.T) {
	_, c := setup(t)
	_, err := c.UploadFile(context.Background(), "not-a-token", archive.Upload{FileName: "a.png", ContentType: "image/png", Data: []byte("png")})
	assert.Equal(t, http.StatusUnauthorized, archive.StatusOf(err))
}

func TestServer_SmallUploadAndCreate(t *testing.T) {
	s, c := setup(t)
	ctx := context.Background()
	sess := login(t, c)
	date := archive.NewEventDate(time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC))

	f, err := c.UploadFile(ctx, sess.AccessToken, archive.Upload{FileName: "a.png", ContentType: "image/png", Data: []byte("png"), Date: date})
	require.NoError(t, err)
	assert.Equal(t, "image/png", f.FileType)

	calls := s.CallsTo("POST /files/upload")
	require.Len(t, calls, 1)
	assert.Equal(t, "03", calls[0].Form["eventMonth"])
	assert.Equal(t, 3, calls[0].Files["file"])

	cats, err := c.ListCategories(ctx, 1, 10)
	require.NoError(t, err)

	draft := archive.MediaItemDraft{
		Title:      "Artikel Arsip",
		Type:       archive.MediaArtikel,
		CategoryID: cats[0].ID,
		Files:      []archive.FileEntry{{FileID: f.ID, Order: 1}},
		Tags:       []string{"sejarah"},
	}
	item, err := c.CreateMediaItem(ctx, sess.AccessToken, draft)
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	require.Len(t, s.Drafts(), 1)
	assert.Equal(t, draft.Title, s.Drafts()[0].Title)

	draft.Files = []archive.FileEntry{{FileID: "nope"}}
	_, err = c.CreateMediaItem(ctx, sess.AccessToken, draft)
	assert.Equal(t, http.StatusUnprocessableEntity, archive.StatusOf(err))
}

func TestServer_ChunkedUpload(t *testing.T) {
	t.Run("in order", func(t *testing.T) {
		s, c := setup(t)
		ctx := context.Background()
		sess := login(t, c)
		s.SetFaults(Faults{UploadID: "abc"})

		up, err := c.InitiateUpload(ctx, sess.AccessToken, archive.InitiateRequest{FileName: "shot 12.mp4", FileSize: 4096, FileType: "video/mp4"})
		require.NoError(t, err)
		assert.Equal(t, "abc", up.UploadID)
		assert.EqualValues(t, DefaultChunkSize, up.ChunkSize)
		assert.EqualValues(t, 4096, up.TotalSize)

		for n := 0; n < 3; n++ {
			require.NoError(t, c.UploadChunk(ctx, sess.AccessToken, "abc", n, []byte("chunk")))
		}
		f, err := c.CompleteUpload(ctx, sess.AccessToken, "abc")
		require.NoError(t, err)
		assert.Equal(t, "shot 12.mp4", f.FileName)
		assert.Equal(t, "/thumbnails/abc.jpg", f.ThumbnailPath)

		_, err = c.CompleteUpload(ctx, sess.AccessToken, "abc")
		assert.Equal(t, http.StatusNotFound, archive.StatusOf(err))
	})

	t.Run("out of order", func(t *testing.T) {
		_, c := setup(t)
		ctx := context.Background()
		sess := login(t, c)
		up, err := c.InitiateUpload(ctx, sess.AccessToken, archive.InitiateRequest{FileName: "v.mp4", FileSize: 10, FileType: "video/mp4"})
		require.NoError(t, err)
		err = c.UploadChunk(ctx, sess.AccessToken, up.UploadID, 1, []byte("x"))
		assert.Equal(t, http.StatusConflict, archive.StatusOf(err))
	})

	t.Run("injected failure", func(t *testing.T) {
		s, c := setup(t)
		ctx := context.Background()
		sess := login(t, c)
		two := 2
		s.SetFaults(Faults{FailChunk: &two})
		up, err := c.InitiateUpload(ctx, sess.AccessToken, archive.InitiateRequest{FileName: "v.mp4", FileSize: 10, FileType: "video/mp4"})
		require.NoError(t, err)
		require.NoError(t, c.UploadChunk(ctx, sess.AccessToken, up.UploadID, 0, []byte("x")))
		require.NoError(t, c.UploadChunk(ctx, sess.AccessToken, up.UploadID, 1, []byte("x")))
		err = c.UploadChunk(ctx, sess.AccessToken, up.UploadID, 2, []byte("x"))
		assert.Equal(t, http.StatusInternalServerError, archive.StatusOf(err))
	})
}

// internal/archive/files.go
package archive

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// UploadFile sends a file through the direct upload path.
func (c *Client) UploadFile(ctx context.Context, token string, up Upload) (*UploadedFile, error) {
	const op = "upload file"
	body, ct, err := newForm().
		file("file", up.FileName, up.ContentType, up.Data).
		date(up.Date).
		finish()
	if err != nil {
		return nil, fmt.Errorf("%s: build form: %w", op, err)
	}
	return c.fileCall(ctx, call{
		op:          op,
		name:        "POST /files/upload",
		method:      http.MethodPost,
		path:        "/files/upload",
		token:       token,
		body:        body,
		contentType: ct,
		timeout:     SmallUploadTimeout,
	})
}

// InitiateUpload opens a chunked upload session. The request carries a one
// byte placeholder file; the real size and name travel as form fields.
func (c *Client) InitiateUpload(ctx context.Context, token string, req InitiateRequest) (*UploadSession, error) {
	const op = "initiate upload"
	body, ct, err := newForm().
		file("file", "dummy.txt", "text/plain", []byte{0}).
		field("fileName", req.FileName).
		field("initialize", "true").
		field("fileSize", strconv.FormatInt(req.FileSize, 10)).
		field("fileType", req.FileType).
		date(req.Date).
		finish()
	if err != nil {
		return nil, fmt.Errorf("%s: build form: %w", op, err)
	}
	resp, err := c.do(ctx, call{
		op:          op,
		name:        "POST /files/upload",
		method:      http.MethodPost,
		path:        "/files/upload",
		token:       token,
		body:        body,
		contentType: ct,
		timeout:     InitiateTimeout,
	})
	if err != nil {
		return nil, err
	}
	if err := resp.expect(op, http.StatusOK); err != nil {
		return nil, err
	}
	var sess UploadSession
	if err := resp.envelope(op, &sess); err != nil {
		return nil, err
	}
	if sess.UploadID == "" {
		return nil, missing(op, resp.status, "data.uploadId")
	}
	return &sess, nil
}

// UploadChunk sends chunk n of an open session. Only the status is checked.
func (c *Client) UploadChunk(ctx context.Context, token, uploadID string, n int, data []byte) error {
	const op = "upload chunk"
	body, ct, err := newForm().
		field("uploadId", uploadID).
		field("chunkNumber", strconv.Itoa(n)).
		file("chunk", "chunk_"+strconv.Itoa(n), "application/octet-stream", data).
		finish()
	if err != nil {
		return fmt.Errorf("%s: build form: %w", op, err)
	}
	resp, err := c.do(ctx, call{
		op:          op,
		name:        "POST /files/upload/chunk",
		method:      http.MethodPost,
		path:        "/files/upload/chunk",
		token:       token,
		body:        body,
		contentType: ct,
	})
	if err != nil {
		return err
	}
	return resp.expect(op, http.StatusOK)
}

// CompleteUpload closes a session and returns the assembled file.
func (c *Client) CompleteUpload(ctx context.Context, token, uploadID string) (*UploadedFile, error) {
	return c.fileCall(ctx, call{
		op:          "complete upload",
		name:        "POST /files/upload/complete",
		method:      http.MethodPost,
		path:        "/files/upload/complete",
		token:       token,
		body:        urlEncoded("uploadId", uploadID),
		contentType: "application/x-www-form-urlencoded",
	})
}

func (c *Client) fileCall(ctx context.Context, cl call) (*UploadedFile, error) {
	resp, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	if err := resp.expect(cl.op, http.StatusOK); err != nil {
		return nil, err
	}
	var f UploadedFile
	if err := resp.envelope(cl.op, &f); err != nil {
		return nil, err
	}
	if f.ID == "" {
		return nil, missing(cl.op, resp.status, "data.id")
	}
	return &f, nil
}

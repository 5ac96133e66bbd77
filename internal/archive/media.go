// internal/archive/media.go
package archive

import (
	"context"
	"net/http"
)

// CreateMediaItem posts a draft. 200 and 201 are both accepted.
func (c *Client) CreateMediaItem(ctx context.Context, token string, draft MediaItemDraft) (*MediaItem, error) {
	const op = "create media item"
	body, err := jsonBody(op, draft)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, call{
		op:          op,
		name:        "POST /media-items",
		method:      http.MethodPost,
		path:        "/media-items",
		token:       token,
		body:        body,
		contentType: "application/json",
	})
	if err != nil {
		return nil, err
	}
	if err := resp.expect(op, http.StatusOK, http.StatusCreated); err != nil {
		return nil, err
	}
	var item MediaItem
	if err := resp.envelope(op, &item); err != nil {
		return nil, err
	}
	if item.ID == "" {
		return nil, missing(op, resp.status, "data.id")
	}
	return &item, nil
}

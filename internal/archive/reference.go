// internal/archive/reference.go
package archive

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ListUnits fetches one page of units.
func (c *Client) ListUnits(ctx context.Context, page, pageSize int) ([]ReferenceItem, error) {
	return c.listReference(ctx, "list units", "/web/units", page, pageSize)
}

// ListCategories fetches one page of categories.
func (c *Client) ListCategories(ctx context.Context, page, pageSize int) ([]ReferenceItem, error) {
	return c.listReference(ctx, "list categories", "/web/categories", page, pageSize)
}

func (c *Client) listReference(ctx context.Context, op, path string, page, pageSize int) ([]ReferenceItem, error) {
	resp, err := c.do(ctx, call{
		op:     op,
		name:   "GET " + path,
		method: http.MethodGet,
		path:   fmt.Sprintf("%s?page=%d&pageSize=%d", path, page, pageSize),
	})
	if err != nil {
		return nil, err
	}
	if err := resp.expect(op, http.StatusOK); err != nil {
		return nil, err
	}
	var items []ReferenceItem
	if err := resp.envelope(op, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// SearchMediaItems runs GET /media-items with an already encoded query
// string, without the leading "?".
func (c *Client) SearchMediaItems(ctx context.Context, query string) ([]MediaItem, error) {
	const op = "search media items"
	path := "/media-items"
	if query != "" {
		path += "?" + query
	}
	resp, err := c.do(ctx, call{op: op, name: "GET /media-items", method: http.MethodGet, path: path})
	if err != nil {
		return nil, err
	}
	if err := resp.expect(op, http.StatusOK); err != nil {
		return nil, err
	}
	var items []MediaItem
	if err := resp.envelope(op, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetMediaItem fetches one media item's detail.
func (c *Client) GetMediaItem(ctx context.Context, id ID) (*MediaItem, error) {
	const op = "get media item"
	resp, err := c.do(ctx, call{
		op:     op,
		name:   "GET /media-items/{id}",
		method: http.MethodGet,
		path:   "/media-items/" + url.PathEscape(string(id)),
	})
	if err != nil {
		return nil, err
	}
	if err := resp.expect(op, http.StatusOK); err != nil {
		return nil, err
	}
	var item MediaItem
	if err := resp.envelope(op, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// IncrementView posts an empty body to the view counter. Only the status
// is checked.
func (c *Client) IncrementView(ctx context.Context, id ID) error {
	const op = "increment view"
	resp, err := c.do(ctx, call{
		op:     op,
		name:   "POST /media-items/{id}/view",
		method: http.MethodPost,
		path:   "/media-items/" + url.PathEscape(string(id)) + "/view",
	})
	if err != nil {
		return err
	}
	return resp.expect(op, http.StatusOK)
}

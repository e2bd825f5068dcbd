package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// Document is one retrieval-source document on the account.
type Document struct {
	ID   int    `json:"id"`
	File string `json:"file"`
}

// ListDocuments fetches all documents.
func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	var out struct {
		Results []Document `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/document/", nil, "", &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// UploadDocument uploads a single file as multipart form data under the
// "file" field.
func (c *Client) UploadDocument(ctx context.Context, filename string, r io.Reader) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize upload form: %w", err)
	}

	return c.do(ctx, http.MethodPost, "/api/document/", &buf, w.FormDataContentType(), nil)
}

// DeleteDocument removes a document by id.
func (c *Client) DeleteDocument(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/document/%d/", id), nil, "", nil)
}

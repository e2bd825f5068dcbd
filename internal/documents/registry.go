// Package documents manages the retrieval-source document list:
// lazy listing, uploads and per-row delete tracking. Documents are
// independent of the chat flow.
package documents

import (
	"context"
	"io"

	"go.uber.org/zap"

	"smartassist/internal/api"
	"smartassist/internal/logging"
)

// Client is the backend surface the registry needs.
type Client interface {
	ListDocuments(ctx context.Context) ([]api.Document, error)
	UploadDocument(ctx context.Context, filename string, r io.Reader) error
	DeleteDocument(ctx context.Context, id int) error
}

// Registry holds the document list state. Like the other stores, the
// network side is separated from state application: fetch in the
// background, apply on the owning thread.
type Registry struct {
	client Client
	log    *zap.Logger

	docs     []api.Document
	loaded   bool
	deleting map[int]bool

	// uploadDone is the one-shot "upload complete" notification. It is
	// set on a successful upload and cleared when the user dismisses it.
	uploadDone bool
}

// NewRegistry creates an empty, not-yet-loaded registry.
func NewRegistry(client Client) *Registry {
	return &Registry{
		client:   client,
		log:      logging.L("docs"),
		deleting: map[int]bool{},
	}
}

// Loaded reports whether the list was fetched at least once. The panel
// fetches lazily on first expansion, not on mount.
func (r *Registry) Loaded() bool { return r.loaded }

// Documents returns a copy of the current list.
func (r *Registry) Documents() []api.Document {
	out := make([]api.Document, len(r.docs))
	copy(out, r.docs)
	return out
}

// Fetch lists documents from the backend without mutating state.
func (r *Registry) Fetch(ctx context.Context) ([]api.Document, error) {
	return r.client.ListDocuments(ctx)
}

// ApplyList replaces the document list with a fetched result.
func (r *Registry) ApplyList(docs []api.Document) {
	r.docs = append(r.docs[:0], docs...)
	r.loaded = true
}

// Upload sends one file and, on success, re-fetches the full list (no
// optimistic insert) and arms the upload-complete notification.
func (r *Registry) Upload(ctx context.Context, filename string, src io.Reader) ([]api.Document, error) {
	if err := r.client.UploadDocument(ctx, filename, src); err != nil {
		r.log.Warn("document upload failed", zap.String("file", filename), zap.Error(err))
		return nil, err
	}
	docs, err := r.client.ListDocuments(ctx)
	if err != nil {
		r.log.Warn("post-upload refresh failed", zap.Error(err))
		return nil, err
	}
	return docs, nil
}

// ApplyUpload folds a successful upload's refreshed list in.
func (r *Registry) ApplyUpload(docs []api.Document) {
	r.ApplyList(docs)
	r.uploadDone = true
}

// UploadComplete reports the one-shot upload notification.
func (r *Registry) UploadComplete() bool { return r.uploadDone }

// DismissUpload clears the upload notification.
func (r *Registry) DismissUpload() { r.uploadDone = false }

// MarkDeleting flags a document row as having a delete in flight, so
// the UI can show a per-row spinner. Concurrent deletes of different
// ids are independent.
func (r *Registry) MarkDeleting(id int) { r.deleting[id] = true }

// Deleting reports whether a delete is in flight for id.
func (r *Registry) Deleting(id int) bool { return r.deleting[id] }

// Delete removes a document server-side. It does not mutate the list;
// call ApplyDelete with the outcome on the owning thread.
func (r *Registry) Delete(ctx context.Context, id int) error {
	return r.client.DeleteDocument(ctx, id)
}

// ApplyDelete clears the in-flight marker and, when the server call
// succeeded, removes the row locally. On failure the list is left
// unchanged; the error was already surfaced by the caller's logging.
func (r *Registry) ApplyDelete(id int, err error) {
	delete(r.deleting, id)
	if err != nil {
		r.log.Warn("document delete failed", zap.Int("id", id), zap.Error(err))
		return
	}
	kept := r.docs[:0]
	for _, d := range r.docs {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	r.docs = kept
}

package documents

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartassist/internal/api"
)

type fakeClient struct {
	docs      []api.Document
	nextID    int
	listErr   error
	uploadErr error
	deleteErr error
}

func (f *fakeClient) ListDocuments(ctx context.Context) ([]api.Document, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]api.Document, len(f.docs))
	copy(out, f.docs)
	return out, nil
}

func (f *fakeClient) UploadDocument(ctx context.Context, filename string, r io.Reader) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.nextID++
	f.docs = append(f.docs, api.Document{ID: f.nextID, File: "uploads/" + filename})
	return nil
}

func (f *fakeClient) DeleteDocument(ctx context.Context, id int) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	kept := f.docs[:0]
	for _, d := range f.docs {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	f.docs = kept
	return nil
}

func TestLazyLoad(t *testing.T) {
	client := &fakeClient{docs: []api.Document{{ID: 1, File: "a.pdf"}}}
	reg := NewRegistry(client)
	assert.False(t, reg.Loaded(), "registry must not fetch on construction")

	docs, err := reg.Fetch(context.Background())
	require.NoError(t, err)
	reg.ApplyList(docs)
	assert.True(t, reg.Loaded())
	assert.Len(t, reg.Documents(), 1)
}

func TestUploadRefreshDeleteScenario(t *testing.T) {
	client := &fakeClient{}
	reg := NewRegistry(client)
	reg.ApplyList(nil)

	// Upload refreshes the full list and arms the one-shot notice.
	docs, err := reg.Upload(context.Background(), "handbook.pdf", strings.NewReader("content"))
	require.NoError(t, err)
	reg.ApplyUpload(docs)
	require.Len(t, reg.Documents(), 1)
	uploaded := reg.Documents()[0]
	assert.Equal(t, "uploads/handbook.pdf", uploaded.File)
	assert.True(t, reg.UploadComplete())

	reg.DismissUpload()
	assert.False(t, reg.UploadComplete())

	// Delete with in-flight marker.
	reg.MarkDeleting(uploaded.ID)
	assert.True(t, reg.Deleting(uploaded.ID))

	err = reg.Delete(context.Background(), uploaded.ID)
	reg.ApplyDelete(uploaded.ID, err)
	require.NoError(t, err)
	assert.Empty(t, reg.Documents())
	assert.False(t, reg.Deleting(uploaded.ID), "marker cleared after delete")
}

func TestUploadFailureLeavesListUnchanged(t *testing.T) {
	client := &fakeClient{docs: []api.Document{{ID: 1, File: "a.pdf"}}, uploadErr: errors.New("boom")}
	reg := NewRegistry(client)
	reg.ApplyList(client.docs)

	_, err := reg.Upload(context.Background(), "b.pdf", strings.NewReader("x"))
	require.Error(t, err)
	assert.Len(t, reg.Documents(), 1)
	assert.False(t, reg.UploadComplete())
}

func TestDeleteFailureLeavesListUnchanged(t *testing.T) {
	client := &fakeClient{docs: []api.Document{{ID: 1, File: "a.pdf"}}, deleteErr: errors.New("boom")}
	reg := NewRegistry(client)
	reg.ApplyList(client.docs)

	reg.MarkDeleting(1)
	err := reg.Delete(context.Background(), 1)
	reg.ApplyDelete(1, err)

	require.Error(t, err)
	assert.Len(t, reg.Documents(), 1, "no rollback needed, list untouched")
	assert.False(t, reg.Deleting(1), "marker cleared even on failure")
}

func TestIndependentConcurrentDeletes(t *testing.T) {
	client := &fakeClient{docs: []api.Document{{ID: 1}, {ID: 2}}}
	reg := NewRegistry(client)
	reg.ApplyList(client.docs)

	reg.MarkDeleting(1)
	reg.MarkDeleting(2)
	assert.True(t, reg.Deleting(1))
	assert.True(t, reg.Deleting(2))

	reg.ApplyDelete(1, nil)
	assert.False(t, reg.Deleting(1))
	assert.True(t, reg.Deleting(2), "deletes of different ids are tracked independently")
	assert.Len(t, reg.Documents(), 1)
}

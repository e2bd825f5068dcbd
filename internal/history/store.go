// Package history manages the conversation entry list: pagination,
// recency classification, rename/delete and the active entry id.
package history

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"smartassist/internal/api"
	"smartassist/internal/logging"
)

// Client is the backend surface the store needs.
type Client interface {
	ListEntries(ctx context.Context, page, pageSize int) (api.EntriesPage, error)
	RenameEntry(ctx context.Context, id, name string) error
	DeleteEntry(ctx context.Context, id string) error
}

// Store holds the loaded entry pages and the active conversation id.
// State mutation happens on the owning (UI) thread; network fetches are
// separated from state application so callers can run them in the
// background and fold the result in later.
type Store struct {
	client   Client
	pageSize int
	log      *zap.Logger

	entries  []api.Entry
	activeID string
	count    int
	lastPage int
	hasMore  bool
}

// NewStore creates an empty history store.
func NewStore(client Client, pageSize int) *Store {
	return &Store{
		client:   client,
		pageSize: pageSize,
		log:      logging.L("history"),
	}
}

// FetchPage fetches one page from the backend. It does not mutate the
// store; pass the result to ApplyPage on the owning thread.
func (s *Store) FetchPage(ctx context.Context, page int) (api.EntriesPage, error) {
	return s.client.ListEntries(ctx, page, s.pageSize)
}

// ApplyPage folds a fetched page in. Page 1 replaces the list; later
// pages append. Server-side id uniqueness is trusted, no deduplication.
func (s *Store) ApplyPage(page int, result api.EntriesPage) {
	if page <= 1 {
		s.entries = append(s.entries[:0], result.Results...)
	} else {
		s.entries = append(s.entries, result.Results...)
	}
	s.count = result.Count
	s.lastPage = page
	s.hasMore = result.Next != nil
	s.log.Debug("applied entries page",
		zap.Int("page", page),
		zap.Int("loaded", len(s.entries)),
		zap.Int("total", s.count))
}

// Entries returns the loaded entries in load order.
func (s *Store) Entries() []api.Entry {
	out := make([]api.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of loaded entries.
func (s *Store) Len() int { return len(s.entries) }

// TotalCount returns the server-side entry count from the last page.
func (s *Store) TotalCount() int { return s.count }

// HasMore reports whether another page exists.
func (s *Store) HasMore() bool { return s.hasMore }

// NextPage returns the next page number to fetch.
func (s *Store) NextPage() int { return s.lastPage + 1 }

// ActiveID returns the selected conversation id, empty when none.
func (s *Store) ActiveID() string { return s.activeID }

// SetActive selects a conversation. At most one is active at a time.
func (s *Store) SetActive(id string) { s.activeID = id }

// Register inserts a freshly created conversation at the front of the
// list and selects it. Called when a new conversation's first answer
// completes.
func (s *Store) Register(e api.Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	s.entries = append([]api.Entry{e}, s.entries...)
	s.count++
	s.activeID = e.ID
}

// Touch bumps an entry's recency so it sorts to the top of its bucket.
func (s *Store) Touch(id string, at time.Time) {
	if at.IsZero() {
		at = time.Now()
	}
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries[i].CreatedAt = at
			return
		}
	}
}

// Rename updates the title server-side and locally together. On failure
// the local title is left untouched.
func (s *Store) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	if err := s.client.RenameEntry(ctx, id, title); err != nil {
		return err
	}
	s.ApplyRename(id, title)
	return nil
}

// ApplyRename mutates the local title only. Used when the server call
// already happened in the background.
func (s *Store) ApplyRename(id, title string) {
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries[i].Name = title
			return
		}
	}
}

// Delete removes an entry server-side and locally. Deleting the active
// entry reassigns the active id to the first remaining entry, or none.
// The caller clears the message list when the active id changed.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.DeleteEntry(ctx, id); err != nil {
		return err
	}
	s.ApplyDelete(id)
	return nil
}

// ApplyDelete removes an entry locally, reassigning the active id when
// needed.
func (s *Store) ApplyDelete(id string) {
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) != len(s.entries) && s.count > 0 {
		s.count--
	}
	s.entries = kept

	if s.activeID == id {
		if len(s.entries) > 0 {
			s.activeID = s.entries[0].ID
		} else {
			s.activeID = ""
		}
	}
}

// Search returns the loaded entries whose title contains the query,
// case-insensitively, newest first. An empty query matches nothing.
func (s *Store) Search(query string) []api.Entry {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	var out []api.Entry
	for _, e := range s.entries {
		if strings.Contains(strings.ToLower(e.Name), query) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Entry is one conversation in the history list.
type Entry struct {
	ID        string    `json:"entry_id"`
	Name      string    `json:"entry_name"`
	CreatedAt time.Time `json:"created_at"`
}

// entryWire mirrors the backend payload, which carries created_at as a
// string in one of a couple of formats.
type entryWire struct {
	ID        string `json:"entry_id"`
	Name      string `json:"entry_name"`
	CreatedAt string `json:"created_at"`
}

var timeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTime(s string) time.Time {
	for _, f := range timeFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var w entryWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.ID = w.ID
	e.Name = w.Name
	e.CreatedAt = parseTime(w.CreatedAt)
	return nil
}

// EntriesPage is one page of the paginated entry listing.
type EntriesPage struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []Entry `json:"results"`
}

// Source is a backend citation supporting an answer.
type Source struct {
	Source  string `json:"source"`
	Snippet string `json:"snippet"`
}

// Message is one question/answer pair of a conversation.
type Message struct {
	UserQuery string   `json:"user_query"`
	Response  string   `json:"gpt_response"`
	Sources   []Source `json:"sources,omitempty"`
}

// ListEntries fetches one page of conversation entries.
func (c *Client) ListEntries(ctx context.Context, page, pageSize int) (EntriesPage, error) {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("page_size", fmt.Sprint(pageSize))

	var out EntriesPage
	if err := c.do(ctx, http.MethodGet, "/api/entries/?"+q.Encode(), nil, "", &out); err != nil {
		return EntriesPage{}, err
	}
	return out, nil
}

// GetEntry fetches the message history of one conversation. Results are
// served from a short-lived cache; InvalidateEntry drops an id after a
// completed answer or a delete.
func (c *Client) GetEntry(ctx context.Context, id string) ([]Message, error) {
	if hit, ok := c.detailCache.Get(id); ok {
		c.log.Debug("entry detail cache hit", zap.String("entry_id", id))
		return hit.([]Message), nil
	}

	var out struct {
		Chats []Message `json:"chats"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/entries/"+url.PathEscape(id)+"/", nil, "", &out); err != nil {
		return nil, err
	}
	c.detailCache.SetDefault(id, out.Chats)
	return out.Chats, nil
}

// InvalidateEntry drops a conversation from the detail cache.
func (c *Client) InvalidateEntry(id string) {
	c.detailCache.Delete(id)
}

// CreateEntry establishes a new conversation before streaming and
// returns its id.
func (c *Client) CreateEntry(ctx context.Context) (string, error) {
	var out struct {
		EntryID string `json:"entry_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chatbot/", nil, "application/json", &out); err != nil {
		return "", err
	}
	if out.EntryID == "" {
		return "", fmt.Errorf("backend returned no entry_id")
	}
	return out.EntryID, nil
}

// RenameEntry updates a conversation title.
func (c *Client) RenameEntry(ctx context.Context, id, name string) error {
	payload, err := json.Marshal(map[string]string{"entry_name": name})
	if err != nil {
		return fmt.Errorf("failed to marshal rename: %w", err)
	}
	return c.do(ctx, http.MethodPatch, "/api/entries/"+url.PathEscape(id)+"/", bytes.NewReader(payload), "application/json", nil)
}

// DeleteEntry removes a conversation.
func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/entries/"+url.PathEscape(id)+"/", nil, "", nil); err != nil {
		return err
	}
	c.detailCache.Delete(id)
	return nil
}

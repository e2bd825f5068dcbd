// Package stream reads incremental answer tokens from the backend over
// a WebSocket. One connection is opened per submitted question and torn
// down after the terminal "completed" event or on error.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"smartassist/internal/api"
	"smartassist/internal/logging"
	"smartassist/internal/session"
)

const (
	handshakeTimeout = 10 * time.Second

	// The backend answers within this window or the stream is dead.
	readTimeout = 5 * time.Minute
)

// Completion is the terminal event of a stream. FinalAnswer is the
// authoritative answer text and always wins over the concatenated
// fragments.
type Completion struct {
	FinalAnswer string
	Sources     []api.Source
	EntryID     string
	EntryName   string
	CreatedAt   time.Time
}

// Stream is one in-flight question. Exactly one of Done or Errs yields
// a value after the fragment channel closes.
type Stream struct {
	// Fragments delivers answer tokens in arrival order. Closed when
	// the stream ends for any reason.
	Fragments <-chan string

	// Done delivers the terminal completion event.
	Done <-chan Completion

	// Errs delivers a transport or protocol failure.
	Errs <-chan error

	conn      *websocket.Conn
	closeOnce sync.Once
}

// Close tears the connection down. Safe to call multiple times and
// after the stream already finished.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
}

// Dialer opens answer streams against the backend.
type Dialer struct {
	wsBase  string
	session session.Provider
	log     *zap.Logger

	// dial is swappable for tests.
	dial func(urlStr string) (*websocket.Conn, error)
}

// NewDialer creates a dialer for the given websocket base URL
// (ws:// or wss://).
func NewDialer(wsBase string, provider session.Provider) *Dialer {
	d := &Dialer{
		wsBase:  strings.TrimSuffix(wsBase, "/"),
		session: provider,
		log:     logging.L("stream"),
	}
	d.dial = func(urlStr string) (*websocket.Conn, error) {
		dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
		conn, _, err := dialer.Dial(urlStr, nil)
		return conn, err
	}
	return d
}

// event mirrors the backend's stream payloads: a fragment carries only
// "token"; the terminal event carries status "completed" plus the final
// answer and metadata.
type event struct {
	Token       string       `json:"token"`
	Status      string       `json:"status"`
	FinalAnswer string       `json:"final_answer"`
	Sources     []api.Source `json:"sources"`
	EntryID     string       `json:"entry_id"`
	EntryName   string       `json:"entry_name"`
	CreatedAt   string       `json:"created_at"`
}

// Ask opens a stream for one question against a conversation. The
// caller owns the returned stream and must drain it or Close it.
func (d *Dialer) Ask(ctx context.Context, entryID, question string) (*Stream, error) {
	sess, ok := d.session.Get()
	if !ok {
		return nil, session.ErrNotAuthenticated
	}

	q := url.Values{}
	q.Set("token", sess.Token)
	wsURL := d.wsBase + "/ws/chatbot/?" + q.Encode()

	conn, err := d.dial(wsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	ask := map[string]string{"question": question, "entry_id": entryID}
	if err := conn.WriteJSON(ask); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to send question: %w", err)
	}

	fragments := make(chan string, 100)
	done := make(chan Completion, 1)
	errs := make(chan error, 1)
	s := &Stream{Fragments: fragments, Done: done, Errs: errs, conn: conn}

	streamID := uuid.NewString()
	log := d.log.With(zap.String("stream_id", streamID), zap.String("entry_id", entryID))
	log.Debug("stream opened")

	// Close the connection when the caller's context ends so the read
	// loop cannot outlive an abandoned question.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-watchDone:
		}
	}()

	go func() {
		defer close(watchDone)
		defer close(fragments)
		defer s.Close()

		start := time.Now()
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					errs <- ctx.Err()
				} else {
					log.Warn("stream read failed", zap.Error(err))
					errs <- fmt.Errorf("stream read failed: %w", err)
				}
				return
			}

			var evt event
			if err := json.Unmarshal(data, &evt); err != nil {
				// Malformed fragment: drop it, keep the stream alive.
				log.Warn("dropping malformed stream event", zap.ByteString("data", data))
				continue
			}

			switch {
			case evt.Status == "completed":
				log.Debug("stream completed", zap.Duration("elapsed", time.Since(start)))
				done <- Completion{
					FinalAnswer: evt.FinalAnswer,
					Sources:     evt.Sources,
					EntryID:     evt.EntryID,
					EntryName:   evt.EntryName,
					CreatedAt:   parseCreatedAt(evt.CreatedAt),
				}
				return
			case evt.Token != "":
				select {
				case fragments <- evt.Token:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
		}
	}()

	return s, nil
}

func parseCreatedAt(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, f := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Package chat holds the message state machine for the active
// conversation: the provisional message, the fragment accumulator and
// the reconciliation of streamed text with the final server answer.
//
// The Reconciler itself is single-threaded. Submit spawns one goroutine
// that pumps stream events into a channel; the owner (the TUI event
// loop, or a test) applies each event back on its own thread via Apply.
// A generation counter makes events from abandoned streams no-ops.
package chat

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"smartassist/internal/api"
	"smartassist/internal/logging"
	"smartassist/internal/stream"
)

// Message is one question/answer pair as displayed. While a stream is
// in flight the last message is provisional: its Response grows as
// fragments arrive and is replaced wholesale by the final answer.
type Message struct {
	UserQuery string
	Response  string
	Sources   []api.Source
}

// EntryCreator establishes a new conversation server-side before the
// first question streams.
type EntryCreator interface {
	CreateEntry(ctx context.Context) (string, error)
}

// Asker opens one answer stream per question.
type Asker interface {
	Ask(ctx context.Context, entryID, question string) (*stream.Stream, error)
}

// Event is a stream lifecycle notification. Events carry the generation
// of the submit that produced them; Apply ignores stale generations.
type Event interface{ generation() int }

// EntryCreatedEvent reports the id of a freshly created conversation.
type EntryCreatedEvent struct {
	Gen     int
	EntryID string
}

// FragmentEvent carries one streamed answer token.
type FragmentEvent struct {
	Gen   int
	Token string
}

// CompletedEvent is the terminal reconciliation event.
type CompletedEvent struct {
	Gen        int
	Completion stream.Completion
	// NewEntry is true when this completion belongs to a conversation
	// created by this submit, so the history store must register it.
	NewEntry bool
}

// FailedEvent reports a submit or stream failure.
type FailedEvent struct {
	Gen int
	Err error
}

func (e EntryCreatedEvent) generation() int { return e.Gen }
func (e FragmentEvent) generation() int     { return e.Gen }
func (e CompletedEvent) generation() int    { return e.Gen }
func (e FailedEvent) generation() int       { return e.Gen }

// Reconciler manages the message list of the active conversation.
type Reconciler struct {
	creator EntryCreator
	asker   Asker
	log     *zap.Logger

	entryID   string
	messages  []Message
	streamed  strings.Builder
	inFlight  bool
	lastErr   error
	gen       int
	cancel    context.CancelFunc
}

// NewReconciler creates a reconciler with no active conversation.
func NewReconciler(creator EntryCreator, asker Asker) *Reconciler {
	return &Reconciler{
		creator: creator,
		asker:   asker,
		log:     logging.L("chat"),
	}
}

// EntryID returns the active conversation id, empty for a new one.
func (r *Reconciler) EntryID() string { return r.entryID }

// IsLoading reports whether a question is in flight.
func (r *Reconciler) IsLoading() bool { return r.inFlight }

// StreamingText returns the ordered concatenation of the fragments
// received so far for the in-flight question.
func (r *Reconciler) StreamingText() string { return r.streamed.String() }

// LastErr returns the most recent submit failure, cleared by the next
// successful submit.
func (r *Reconciler) LastErr() error { return r.lastErr }

// Messages returns a copy of the current message list.
func (r *Reconciler) Messages() []Message {
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Reset switches the reconciler to another conversation, replacing the
// message list with its persisted history. Any in-flight stream is
// closed (cancel-and-replace); its late events become stale no-ops.
func (r *Reconciler) Reset(entryID string, history []api.Message) {
	r.abandon()
	r.entryID = entryID
	r.messages = r.messages[:0]
	for _, m := range history {
		r.messages = append(r.messages, Message{
			UserQuery: m.UserQuery,
			Response:  m.Response,
			Sources:   m.Sources,
		})
	}
}

// Clear starts a fresh, not-yet-created conversation.
func (r *Reconciler) Clear() {
	r.Reset("", nil)
}

func (r *Reconciler) abandon() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.gen++
	r.inFlight = false
	r.streamed.Reset()
}

// Submit asks a question on the active conversation. It returns false
// without side effects when the text is blank or a question is already
// in flight. Otherwise it appends the provisional message, opens the
// stream in the background and returns the event channel the owner
// must drain and Apply.
func (r *Reconciler) Submit(ctx context.Context, text string) (<-chan Event, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || r.inFlight {
		return nil, false
	}

	r.messages = append(r.messages, Message{UserQuery: trimmed})
	r.streamed.Reset()
	r.inFlight = true
	r.lastErr = nil
	r.gen++
	gen := r.gen
	entryID := r.entryID

	ctx, r.cancel = context.WithCancel(ctx)

	events := make(chan Event, 128)
	go r.run(ctx, gen, entryID, trimmed, events)
	return events, true
}

// run performs the network side of one submit, emitting events only.
// It never touches reconciler state.
func (r *Reconciler) run(ctx context.Context, gen int, entryID, question string, events chan<- Event) {
	defer close(events)

	newEntry := entryID == ""
	if newEntry {
		id, err := r.creator.CreateEntry(ctx)
		if err != nil {
			events <- FailedEvent{Gen: gen, Err: err}
			return
		}
		entryID = id
		events <- EntryCreatedEvent{Gen: gen, EntryID: id}
	}

	s, err := r.asker.Ask(ctx, entryID, question)
	if err != nil {
		events <- FailedEvent{Gen: gen, Err: err}
		return
	}
	defer s.Close()

	for tok := range s.Fragments {
		events <- FragmentEvent{Gen: gen, Token: tok}
	}
	select {
	case c := <-s.Done:
		if c.EntryID == "" {
			c.EntryID = entryID
		}
		events <- CompletedEvent{Gen: gen, Completion: c, NewEntry: newEntry}
	case err := <-s.Errs:
		events <- FailedEvent{Gen: gen, Err: err}
	}
}

// Apply folds one event into the state. Must be called from the owning
// thread. Returns false for stale events, which are ignored entirely.
func (r *Reconciler) Apply(evt Event) bool {
	if evt.generation() != r.gen {
		r.log.Debug("dropping stale stream event", zap.Int("gen", evt.generation()))
		return false
	}

	switch e := evt.(type) {
	case EntryCreatedEvent:
		r.entryID = e.EntryID

	case FragmentEvent:
		if !r.inFlight || len(r.messages) == 0 {
			return false
		}
		r.streamed.WriteString(e.Token)
		r.messages[len(r.messages)-1].Response = r.streamed.String()

	case CompletedEvent:
		if len(r.messages) > 0 {
			last := &r.messages[len(r.messages)-1]
			// The server's final answer always wins over the
			// concatenated fragments.
			last.Response = e.Completion.FinalAnswer
			last.Sources = e.Completion.Sources
		}
		if e.Completion.EntryID != "" {
			r.entryID = e.Completion.EntryID
		}
		r.streamed.Reset()
		r.inFlight = false
		r.cancel = nil

	case FailedEvent:
		// Keep whatever fragments already rendered; just stop loading.
		r.streamed.Reset()
		r.inFlight = false
		r.cancel = nil
		r.lastErr = e.Err
	}
	return true
}

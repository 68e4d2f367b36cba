// Package messages queues operation results in the session so the next page
// can display them.
package messages

import (
	"context"
	"encoding/gob"
	"io"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/gorilla/sessions"

	"github.com/aiokaizen/bear-vision/internal/lava/markup"
	"github.com/aiokaizen/bear-vision/internal/lava/result"
)

// SessionName is the cookie session holding queued messages.
const SessionName = "bearvision_messages"

// Message is one queued notice. Tag is success, warning or error.
type Message struct {
	Tag  string
	Text string
}

// AlertClass returns the alert css class of the message tag.
func (m Message) AlertClass() string {
	if m.Tag == result.DispositionError.String() {
		return "alert alert-danger"
	}
	return "alert alert-" + m.Tag
}

func init() {
	gob.Register(Message{})
}

// Store reads and writes messages through a session store.
type Store struct {
	sessions sessions.Store
	logger   *slog.Logger
}

// New creates a Store over store.
func New(store sessions.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{sessions: store, logger: logger}
}

// Add queues res. Results without a message are ignored.
func (s *Store) Add(w http.ResponseWriter, r *http.Request, res result.Result) error {
	if res.Message() == "" {
		return nil
	}
	session, err := s.sessions.Get(r, SessionName)
	if err != nil && session == nil {
		return err
	}
	session.AddFlash(Message{Tag: res.Tag(), Text: res.Message()})
	return session.Save(r, w)
}

// Flash queues res and logs failures. It fits views.Capabilities.Flash.
func (s *Store) Flash(w http.ResponseWriter, r *http.Request, res result.Result) {
	if err := s.Add(w, r, res); err != nil {
		s.logger.Warn("failed to queue message", "error", err)
	}
}

// Pop returns the queued messages and clears the queue.
func (s *Store) Pop(w http.ResponseWriter, r *http.Request) []Message {
	session, err := s.sessions.Get(r, SessionName)
	if session == nil {
		s.logger.Warn("failed to read messages", "error", err)
		return nil
	}
	flashes := session.Flashes()
	if len(flashes) == 0 {
		return nil
	}
	if err := session.Save(r, w); err != nil {
		s.logger.Warn("failed to clear messages", "error", err)
	}

	out := make([]Message, 0, len(flashes))
	for _, f := range flashes {
		if m, ok := f.(Message); ok {
			out = append(out, m)
		}
	}
	return out
}

// Component renders msgs as dismissible alerts.
func Component(msgs []Message) templ.Component {
	if len(msgs) == 0 {
		return markup.Empty
	}
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := markup.New(out)
		w.Open("div", "id", "messages")
		for _, m := range msgs {
			w.Elem("div", m.Text, "class", m.AlertClass(), "role", "alert")
		}
		return w.Close("div").Err()
	})
}

// Package websocket carries interactive chat sessions. Each connection is
// one logical client session: at most one upstream call is in flight per
// session, and a newer query cancels the prior one so a stale answer is
// never delivered.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/dom/chatrelay/internal/domain"
	"github.com/dom/chatrelay/internal/service"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

type queryMessage struct {
	Query string `json:"query"`
}

type resultMessage struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

type Session struct {
	conn        *websocket.Conn
	chatService *service.ChatService
	userID      uuid.UUID
	development bool
	send        chan []byte
	shutdown    chan struct{}
	once        sync.Once

	mu     sync.Mutex
	cancel context.CancelFunc
	gen    int
	closed bool
}

func NewSession(conn *websocket.Conn, chatService *service.ChatService, userID uuid.UUID, development bool) *Session {
	return &Session{
		conn:        conn,
		chatService: chatService,
		userID:      userID,
		development: development,
		send:        make(chan []byte, 16),
		shutdown:    make(chan struct{}),
	}
}

// Run drives the session until the connection closes. The write pump owns
// the connection's write side; queries are answered asynchronously so the
// read loop stays free to receive a superseding query while one is in
// flight.
func (s *Session) Run(ctx context.Context) {
	ctx, stop := context.WithCancel(ctx)

	go s.writePump()

	defer func() {
		stop()
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.closed = true
		close(s.send)
		s.mu.Unlock()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ERROR [websocket.Session] read (user %s): %v", s.userID, err)
			}
			return
		}

		var msg queryMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.reply(resultMessage{Error: "Query must be a string"})
			continue
		}

		// Cancellation is registered here, in arrival order, before the
		// ask goroutine starts.
		askCtx, gen := s.beginAsk(ctx)
		go s.ask(askCtx, gen, msg.Query)
	}
}

// beginAsk cancels any in-flight upstream call and registers a fresh one.
func (s *Session) beginAsk(ctx context.Context) (context.Context, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	askCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.gen++
	return askCtx, s.gen
}

func (s *Session) ask(ctx context.Context, gen int, query string) {
	text, err := s.chatService.Ask(ctx, query)

	s.mu.Lock()
	current := s.gen == gen && !s.closed
	if current {
		s.cancel = nil
	}
	s.mu.Unlock()

	// A superseded call's outcome is discarded; the newer query answers.
	if !current || ctx.Err() != nil {
		return
	}

	if err != nil {
		s.reply(resultMessage{Error: s.clientErrorText(err)})
		return
	}
	s.reply(resultMessage{Response: text})
}

// clientErrorText maps an Ask failure to the text sent over the wire.
// Client-caused errors travel verbatim; anything else is redacted outside
// development mode and logged server-side with full detail.
func (s *Session) clientErrorText(err error) string {
	var upstreamErr *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		return err.Error()
	case errors.As(err, &upstreamErr):
		return "Upstream API error"
	default:
		log.Printf("ERROR [websocket.Session] ask (user %s): %v", s.userID, err)
		if s.development {
			return err.Error()
		}
		return "Internal server error"
	}
}

// Close aborts any in-flight upstream call and asks the write pump to send
// a going-away frame, which also unblocks the read loop. Safe to call more
// than once and concurrently with Run.
func (s *Session) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	s.once.Do(func() { close(s.shutdown) })
}

// reply queues a frame for the write pump. Replies racing session shutdown
// are dropped.
func (s *Session) reply(msg resultMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- data:
	default:
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.shutdown:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		}
	}
}

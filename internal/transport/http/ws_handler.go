package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"quizlink-service/internal/app"
	"quizlink-service/internal/domain"
)

// WSHandler runs a student's live attempt over a WebSocket.
type WSHandler struct {
	attempts *app.AttemptService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(attempts *app.AttemptService, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		attempts: attempts,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) Register(router gin.IRouter) {
	router.GET("/ws", gin.WrapF(h.ServeWS))
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type actionPayload struct {
	QuestionNumber int             `json:"questionNumber"`
	Option         json.RawMessage `json:"option"`
	Index          int             `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorMessage(err error) outboundMessage[any] {
	_, code := classify(err)
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: code, Message: err.Error()}}
}

// ServeWS admits the student named in the query string and relays their attempt.
// GET /ws?linkId=...&name=...&class=...&section=...
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	linkID := strings.TrimSpace(q.Get("linkId"))
	identity := domain.StudentIdentity{
		Name:      strings.TrimSpace(q.Get("name")),
		ClassName: strings.TrimSpace(q.Get("class")),
		Section:   strings.TrimSpace(q.Get("section")),
	}
	if linkID == "" || identity.Name == "" {
		http.Error(w, "missing linkId or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	view, err := h.attempts.Begin(ctx, linkID, identity)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	attemptID := view.AttemptID

	updates, cancel, err := h.attempts.Subscribe(ctx, attemptID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	push := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	// Only this goroutine writes to conn.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write failed", "attempt_id", attemptID, "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				msg := outboundMessage[any]{Type: "state", Payload: update.View}
				switch {
				case update.Score != nil:
					msg = outboundMessage[any]{Type: "submitted", Payload: newScoreSummary(*update.Score)}
				case update.Err != nil:
					msg = errorMessage(update.Err)
				}
				select {
				case send <- msg:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	push(outboundMessage[any]{Type: "joined", Payload: view})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.handle(r, attemptID, inbound); err != nil {
			push(errorMessage(err))
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// handle applies one inbound message. State changes reach the client through the
// attempt's subscription, so only failures are reported here.
func (h *WSHandler) handle(r *http.Request, attemptID string, inbound inboundMessage) error {
	ctx := r.Context()

	var payload actionPayload
	if len(inbound.Payload) > 0 {
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.Join(errBadRequest, err)
		}
	}

	switch inbound.Type {
	case "submit":
		_, err := h.attempts.Submit(ctx, attemptID)
		return err
	case "abandon":
		h.attempts.Abandon(ctx, attemptID)
		return nil
	case "select":
		option, err := parseOption(payload.Option)
		if err != nil {
			return err
		}
		if option == nil {
			_, err = h.attempts.Act(ctx, attemptID, app.Action{Kind: app.ActionClear, QuestionNumber: payload.QuestionNumber})
			return err
		}
		_, err = h.attempts.Act(ctx, attemptID, app.Action{Kind: app.ActionSelect, QuestionNumber: payload.QuestionNumber, Option: *option})
		return err
	case "clear", "mark", "navigate", "next", "previous":
		_, err := h.attempts.Act(ctx, attemptID, app.Action{
			Kind:           app.ActionKind(inbound.Type),
			QuestionNumber: payload.QuestionNumber,
			Index:          payload.Index,
		})
		return err
	default:
		return errors.Join(errBadRequest, errors.New("unsupported message type "+inbound.Type))
	}
}

var _ Service = (*WSHandler)(nil)

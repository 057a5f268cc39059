package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"quiz-engine-service/internal/app"
	"quiz-engine-service/internal/domain"
	"quiz-engine-service/internal/engine"
	"github.com/gorilla/websocket"
)

// tickInterval is how often the server drives the attempt timers for a
// connected client.
const tickInterval = time.Second

type WSHandler struct {
	service  *app.AttemptService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AttemptService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID  string `json:"questionId"`
	Selected    *int   `json:"selected,omitempty"`
	SelectedSet []int  `json:"selectedSet,omitempty"`
	Text        string `json:"text,omitempty"`
}

type selectSectionPayload struct {
	Position int `json:"position"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// attempt use cases. One connection serves one (quiz, user) attempt; the
// server owns the clock and pushes state, the client only sends intent.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	userID := r.URL.Query().Get("userId")
	if quizID == "" || userID == "" {
		http.Error(w, "missing quizId or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	if _, err := h.service.Start(r.Context(), quizID, userID); err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	// Leave must observe the unsubscribed state, so it is deferred before
	// cancel: deferred calls run last-in-first-out.
	defer h.service.Leave(r.Context(), quizID, userID)

	updates, cancel, err := h.service.Subscribe(r.Context(), quizID, userID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})
	tickerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
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
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	go func() {
		defer close(tickerDone)
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_, events, err := h.service.Tick(r.Context(), quizID, userID)
				if err != nil {
					return
				}
				for _, ev := range events {
					if ev.Kind != engine.EventSubmitted {
						continue
					}
					rec, ok, err := h.service.Result(r.Context(), quizID, userID)
					if err != nil || !ok {
						continue
					}
					select {
					case send <- outboundMessage[any]{Type: "result", Payload: rec}:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r, quizID, userID, inbound, send)
	}

	close(closeSignals)
	<-updatesDone
	<-tickerDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, quizID, userID string, inbound inboundMessage, send chan<- outboundMessage[any]) {
	ctx := r.Context()
	fail := func(msg string) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
	}

	switch inbound.Type {
	case "acceptRules":
		if _, err := h.service.AcceptRules(ctx, quizID, userID); err != nil {
			fail(err.Error())
			return
		}
		h.sendPaper(ctx, quizID, userID, send)
	case "selectSection":
		var payload selectSectionPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail("invalid selectSection payload")
			return
		}
		if _, err := h.service.SelectSection(ctx, quizID, userID, payload.Position); err != nil {
			fail(err.Error())
		}
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail("invalid answer payload")
			return
		}
		ans := domain.Answer{
			Selected:    payload.Selected,
			SelectedSet: payload.SelectedSet,
			Text:        payload.Text,
		}
		if _, err := h.service.SaveAnswer(ctx, quizID, userID, payload.QuestionID, ans); err != nil {
			fail(err.Error())
		}
	case "nextSection":
		if _, err := h.service.NextSection(ctx, quizID, userID); err != nil {
			fail(err.Error())
		}
	case "submit":
		rec, err := h.service.Submit(ctx, quizID, userID, false)
		if err != nil {
			fail(err.Error())
			return
		}
		send <- outboundMessage[any]{Type: "result", Payload: rec}
	case "paper":
		h.sendPaper(ctx, quizID, userID, send)
	case "review":
		rows, err := h.service.Review(ctx, quizID, userID)
		if err != nil {
			fail(err.Error())
			return
		}
		send <- outboundMessage[any]{Type: "review", Payload: rows}
	case "result":
		rec, ok, err := h.service.Result(ctx, quizID, userID)
		if err != nil {
			fail(err.Error())
			return
		}
		if !ok {
			fail("attempt not submitted")
			return
		}
		send <- outboundMessage[any]{Type: "result", Payload: rec}
	default:
		fail("unsupported message type")
	}
}

func (h *WSHandler) sendPaper(ctx context.Context, quizID, userID string, send chan<- outboundMessage[any]) {
	paper, err := h.service.Paper(ctx, quizID, userID)
	if err != nil {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		return
	}
	send <- outboundMessage[any]{Type: "paper", Payload: paper}
}

package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"quizdesk-service/internal/app"
)

// WSHandler serves the play channel: the quiz is pushed on connect and the
// participant submits once over the same connection.
type WSHandler struct {
	catalog  *app.CatalogService
	attempts *app.AttemptService
	upgrader websocket.Upgrader
}

func NewWSHandler(catalog *app.CatalogService, attempts *app.AttemptService) *WSHandler {
	return &WSHandler{
		catalog:  catalog,
		attempts: attempts,
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

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func wsError(err error) outboundMessage[any] {
	status, msg := statusFor(err)
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Status: status, Message: msg}}
}

// ServeWS resolves the access code before upgrading so that unknown codes get a plain HTTP error.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		returnHTTPMessage(w, http.StatusBadRequest, "error", "missing code")
		return
	}
	caller := callerFrom(r)
	quiz, err := h.catalog.PlayableQuizByCode(r.Context(), caller, code)
	if err != nil {
		returnError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 4)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write error")
				return
			}
		}
	}()

	// push drops messages once the writer has died; the next read then fails and ends the loop.
	push := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	push(outboundMessage[any]{Type: "quiz", Payload: quiz})

	submitted := false
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "submit":
			if submitted {
				push(outboundMessage[any]{Type: "error", Payload: errorPayload{Status: http.StatusConflict, Message: "already submitted"}})
				continue
			}
			var payload submitRequest
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				push(outboundMessage[any]{Type: "error", Payload: errorPayload{Status: http.StatusBadRequest, Message: "invalid submit payload"}})
				continue
			}
			if err := validateRequest(&payload); err != nil {
				push(wsError(err))
				continue
			}
			result, err := h.attempts.SubmitAttempt(r.Context(), caller, quiz.ID, payload.participant(), payload.Selections)
			if err != nil {
				push(wsError(err))
				continue
			}
			submitted = true
			push(outboundMessage[any]{Type: "result", Payload: result})
		default:
			push(outboundMessage[any]{Type: "error", Payload: errorPayload{Status: http.StatusBadRequest, Message: "unsupported message type"}})
		}
	}

	close(send)
	<-writerDone
}

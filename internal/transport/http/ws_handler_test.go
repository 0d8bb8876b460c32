package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketPlayFlow(t *testing.T) {
	env := newTestEnv(t)
	owner := env.login(t, "owner@example.com")
	quiz := env.createQuiz(t, owner)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/play?code=" + strings.ToLower(quiz.AccessCode)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	raw := readRaw(conn, t, "quiz")
	if strings.Contains(string(raw), `"correct"`) {
		t.Fatalf("quiz payload leaks correctness: %s", raw)
	}
	var play struct {
		ID        int64 `json:"id"`
		Questions []struct {
			ID int64 `json:"id"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(raw, &play); err != nil {
		t.Fatalf("decode quiz payload: %v", err)
	}
	if play.ID != quiz.ID || len(play.Questions) != 2 {
		t.Fatalf("unexpected quiz payload %+v", play)
	}

	submit := map[string]any{
		"type": "submit",
		"payload": map[string]any{
			"firstName":  "Ann",
			"lastName":   "Lee",
			"selections": perfectSelections(quiz),
		},
	}
	if err := conn.WriteJSON(submit); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	_, result := readNext(conn, t, "result")
	if result["score"] != float64(100) || result["passed"] != true {
		t.Fatalf("unexpected result %+v", result)
	}

	if err := conn.WriteJSON(submit); err != nil {
		t.Fatalf("write second submit: %v", err)
	}
	_, payload := readNext(conn, t, "error")
	if payload["status"] != float64(http.StatusConflict) {
		t.Fatalf("expected conflict, got %+v", payload)
	}

	if err := conn.WriteJSON(map[string]any{"type": "ping"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	_, payload = readNext(conn, t, "error")
	if payload["status"] != float64(http.StatusBadRequest) {
		t.Fatalf("expected bad request, got %+v", payload)
	}
}

func TestWebSocketRejectsInvalidSubmit(t *testing.T) {
	env := newTestEnv(t)
	owner := env.login(t, "owner@example.com")
	quiz := env.createQuiz(t, owner)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/play?code=" + quiz.AccessCode
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readNext(conn, t, "quiz")

	// anonymous participants must give their names
	if err := conn.WriteJSON(map[string]any{"type": "submit", "payload": map[string]any{"selections": perfectSelections(quiz)}}); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	_, payload := readNext(conn, t, "error")
	if payload["status"] != float64(http.StatusUnprocessableEntity) {
		t.Fatalf("expected validation error, got %+v", payload)
	}

	// the connection stays usable after a rejected submission
	if err := conn.WriteJSON(map[string]any{"type": "submit", "payload": map[string]any{
		"firstName": "Ann", "lastName": "Lee", "selections": perfectSelections(quiz),
	}}); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	readNext(conn, t, "result")
}

func TestWebSocketUnknownCode(t *testing.T) {
	env := newTestEnv(t)
	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/play?code=ZZZZZZ"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 response, got %+v", resp)
	}
}

func readRaw(conn *websocket.Conn, t *testing.T, expect string) json.RawMessage {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s: %s", expect, msg.Type, msg.Payload)
	}
	return msg.Payload
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	raw := readRaw(conn, t, expect)
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return expect, payload
}

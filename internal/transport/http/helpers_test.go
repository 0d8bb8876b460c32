package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizdesk-service/internal/app"
	"quizdesk-service/internal/auth"
	"quizdesk-service/internal/infra/memory"
)

type testEnv struct {
	server *httptest.Server
	store  *memory.Store
	outbox *memory.Outbox
	auth   *app.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	quizzes := memory.NewQuizRepository(store, time.Minute)
	signer := auth.NewSigner("test-secret", time.Hour)
	outbox := memory.NewOutbox()
	svc := Services{
		Auth:      app.NewAuthService(store, signer, outbox, time.Hour),
		Catalog:   app.NewCatalogService(store, quizzes, memory.NewCodeReserver(time.Minute)),
		Questions: app.NewQuestionService(store, quizzes),
		Attempts:  app.NewAttemptService(store, quizzes),
	}
	server := httptest.NewServer(NewRouter(svc, signer, nil))
	t.Cleanup(server.Close)
	return &testEnv{server: server, store: store, outbox: outbox, auth: svc.Auth}
}

// do sends a JSON request and decodes the response body into out when out is non-nil.
func (e *testEnv) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

// login registers a user and returns a bearer token.
func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	status := e.do(t, "POST", "/api/auth/register", "", map[string]any{
		"email": email, "password": "secret123", "firstName": "Ada", "lastName": "Lovelace",
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("register %s: status %d", email, status)
	}
	var tok tokenResponse
	status = e.do(t, "POST", "/api/auth/login", "", map[string]any{"email": email, "password": "secret123"}, &tok)
	if status != http.StatusOK || tok.Token == "" {
		t.Fatalf("login %s: status %d", email, status)
	}
	return tok.Token
}

// createQuiz creates a questionnaire with one single-answer and one multi-answer question.
func (e *testEnv) createQuiz(t *testing.T, token string) app.QuizView {
	t.Helper()
	var quiz app.QuizView
	if status := e.do(t, "POST", "/api/quizzes", token, map[string]any{"title": "Capitals"}, &quiz); status != http.StatusCreated {
		t.Fatalf("create quiz: status %d", status)
	}
	questions := []map[string]any{
		{
			"text": "What is the capital of France?",
			"answers": []map[string]any{
				{"text": "Paris", "correct": true},
				{"text": "Lyon"},
			},
		},
		{
			"text": "Which are prime numbers?",
			"answers": []map[string]any{
				{"text": "2", "correct": true},
				{"text": "3", "correct": true},
				{"text": "4"},
			},
		},
	}
	for _, q := range questions {
		if status := e.do(t, "POST", pathf("/api/quizzes/%d/questions", quiz.ID), token, q, nil); status != http.StatusCreated {
			t.Fatalf("add question: status %d", status)
		}
	}
	if status := e.do(t, "GET", pathf("/api/quizzes/%d", quiz.ID), token, nil, &quiz); status != http.StatusOK {
		t.Fatalf("get quiz: status %d", status)
	}
	return quiz
}

// perfectSelections answers every question correctly.
func perfectSelections(quiz app.QuizView) []map[string]any {
	var out []map[string]any
	for _, q := range quiz.Questions {
		for _, a := range q.Answers {
			if a.Correct {
				out = append(out, map[string]any{"questionId": q.ID, "answerId": a.ID})
			}
		}
	}
	return out
}

// halfSelections answers the first question correctly and the second with a wrong answer.
func halfSelections(quiz app.QuizView) []map[string]any {
	first, second := quiz.Questions[0], quiz.Questions[1]
	var out []map[string]any
	for _, a := range first.Answers {
		if a.Correct {
			out = append(out, map[string]any{"questionId": first.ID, "answerId": a.ID})
		}
	}
	for _, a := range second.Answers {
		if !a.Correct {
			out = append(out, map[string]any{"questionId": second.ID, "answerId": a.ID})
		}
	}
	return out
}

func pathf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

package http

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"quizdesk-service/internal/app"
)

// Services bundles the use cases exposed over HTTP.
type Services struct {
	Auth      *app.AuthService
	Catalog   *app.CatalogService
	Questions *app.QuestionService
	Attempts  *app.AttemptService
}

type Server struct {
	svc Services
	ws  *WSHandler
}

// NewRouter builds the REST and websocket routes behind CORS, panic recovery, access
// logging and bearer-token resolution.
func NewRouter(svc Services, tokens TokenParser, corsOrigins []string) http.Handler {
	s := &Server{svc: svc, ws: NewWSHandler(svc.Catalog, svc.Attempts)}
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods("GET")

	r.HandleFunc("/api/auth/register", s.RegisterFunc).Methods("POST")
	r.HandleFunc("/api/auth/login", s.LoginFunc).Methods("POST")
	r.HandleFunc("/api/auth/me", s.MeFunc).Methods("GET")
	r.HandleFunc("/api/auth/forgot-password", s.ForgotPasswordFunc).Methods("POST")
	r.HandleFunc("/api/auth/reset-password", s.ResetPasswordFunc).Methods("POST")
	r.HandleFunc("/api/users/me", s.UpdateProfileFunc).Methods("PUT")
	r.HandleFunc("/api/users/{id:[0-9]+}", s.GetUserFunc).Methods("GET")

	r.HandleFunc("/api/quizzes", s.ListQuizzesFunc).Methods("GET")
	r.HandleFunc("/api/quizzes", s.CreateQuizFunc).Methods("POST")
	r.HandleFunc("/api/quizzes/{id:[0-9]+}", s.GetQuizFunc).Methods("GET")
	r.HandleFunc("/api/quizzes/{id:[0-9]+}", s.UpdateQuizFunc).Methods("PUT")
	r.HandleFunc("/api/quizzes/{id:[0-9]+}", s.DeleteQuizFunc).Methods("DELETE")
	r.HandleFunc("/api/quizzes/{id:[0-9]+}/toggle-status", s.ToggleQuizFunc).Methods("PATCH")
	r.HandleFunc("/api/quizzes/{id:[0-9]+}/questions", s.ListQuestionsFunc).Methods("GET")
	r.HandleFunc("/api/quizzes/{id:[0-9]+}/questions", s.AddQuestionFunc).Methods("POST")
	r.HandleFunc("/api/quizzes/{id:[0-9]+}/attempts", s.ListQuizAttemptsFunc).Methods("GET")
	r.HandleFunc("/api/quizzes/{id:[0-9]+}/attempts/{attemptId:[0-9]+}", s.QuizAttemptFunc).Methods("GET")

	r.HandleFunc("/api/questions/{id:[0-9]+}", s.GetQuestionFunc).Methods("GET")
	r.HandleFunc("/api/questions/{id:[0-9]+}", s.UpdateQuestionFunc).Methods("PUT")
	r.HandleFunc("/api/questions/{id:[0-9]+}", s.DeleteQuestionFunc).Methods("DELETE")
	r.HandleFunc("/api/questions/{id:[0-9]+}/answers", s.AddAnswerFunc).Methods("POST")
	r.HandleFunc("/api/questions/{id:[0-9]+}/reorder-answers", s.ReorderAnswersFunc).Methods("POST")
	r.HandleFunc("/api/answers/{id:[0-9]+}", s.UpdateAnswerFunc).Methods("PUT")
	r.HandleFunc("/api/answers/{id:[0-9]+}", s.DeleteAnswerFunc).Methods("DELETE")

	r.HandleFunc("/api/public/quizzes", s.ListActiveQuizzesFunc).Methods("GET")
	r.HandleFunc("/api/public/quizzes/{id:[0-9]+}", s.PlayQuizFunc).Methods("GET")
	r.HandleFunc("/api/public/quizzes/code/{code}", s.PlayQuizByCodeFunc).Methods("GET")
	r.HandleFunc("/api/public/quizzes/{id:[0-9]+}/submit", s.SubmitFunc).Methods("POST")

	r.HandleFunc("/api/attempts/{id:[0-9]+}", s.AttemptResultsFunc).Methods("GET")
	r.HandleFunc("/api/attempts/{id:[0-9]+}", s.DeleteAttemptFunc).Methods("DELETE")
	r.HandleFunc("/api/history", s.HistoryFunc).Methods("GET")
	r.HandleFunc("/api/history/stats", s.StatsFunc).Methods("GET")

	r.HandleFunc("/ws/play", s.ws.ServeWS)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		returnHTTPMessage(w, http.StatusNotFound, "error", "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		returnHTTPMessage(w, http.StatusMethodNotAllowed, "error", "method not allowed")
	})

	r.Use(withCaller(tokens))

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedOrigins(corsOrigins),
	)
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(accessLog(cors(r)))
}

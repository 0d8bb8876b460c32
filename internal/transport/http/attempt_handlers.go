package http

import (
	"net/http"
)

func (s *Server) SubmitFunc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		returnError(w, r, err)
		return
	}
	var req submitRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := s.svc.Attempts.SubmitAttempt(r.Context(), callerFrom(r), id, req.participant(), req.Selections)
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusCreated, result)
}

func (s *Server) AttemptResultsFunc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		returnError(w, r, err)
		return
	}
	results, err := s.svc.Attempts.GetAttemptResults(r.Context(), callerFrom(r), id)
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, results)
}

func (s *Server) DeleteAttemptFunc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		returnError(w, r, err)
		return
	}
	if err := s.svc.Attempts.DeleteAttempt(r.Context(), callerFrom(r), id); err != nil {
		returnError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ListQuizAttemptsFunc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		returnError(w, r, err)
		return
	}
	attempts, err := s.svc.Attempts.ListQuizAttempts(r.Context(), callerFrom(r), id)
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, attempts)
}

func (s *Server) QuizAttemptFunc(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "id")
	if err != nil {
		returnError(w, r, err)
		return
	}
	attemptID, err := pathID(r, "attemptId")
	if err != nil {
		returnError(w, r, err)
		return
	}
	results, err := s.svc.Attempts.QuizAttemptDetails(r.Context(), callerFrom(r), quizID, attemptID)
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, results)
}

func (s *Server) HistoryFunc(w http.ResponseWriter, r *http.Request) {
	history, err := s.svc.Attempts.UserHistory(r.Context(), callerFrom(r))
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, history)
}

func (s *Server) StatsFunc(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Attempts.UserStats(r.Context(), callerFrom(r))
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, stats)
}

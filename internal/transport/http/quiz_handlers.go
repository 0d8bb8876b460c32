package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"quizdesk-service/internal/app"
)

func (s *Server) ListQuizzesFunc(w http.ResponseWriter, r *http.Request) {
	quizzes, err := s.svc.Catalog.ListQuizzes(r.Context(), callerFrom(r))
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, quizzes)
}

func (s *Server) CreateQuizFunc(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if !decode(w, r, &req) {
		return
	}
	quiz, err := s.svc.Catalog.CreateQuiz(r.Context(), callerFrom(r), req.input())
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusCreated, quiz)
}

func (s *Server) GetQuizFunc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		returnError(w, r, err)
		return
	}
	quiz, err := s.svc.Catalog.GetQuiz(r.Context(), callerFrom(r), id)
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, quiz)
}

func (s *Server) UpdateQuizFunc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		returnError(w, r, err)
		return
	}
	var req quizPatchRequest
	if !decode(w, r, &req) {
		return
	}
	quiz, err := s.svc.Catalog.UpdateQuiz(r.Context(), callerFrom(r), id, req.patch())
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, quiz)
}

func (s *Server) DeleteQuizFunc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		returnError(w, r, err)
		return
	}
	if err := s.svc.Catalog.DeleteQuiz(r.Context(), callerFrom(r), id); err != nil {
		returnError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ToggleQuizFunc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		returnError(w, r, err)
		return
	}
	quiz, err := s.svc.Catalog.ToggleActive(r.Context(), callerFrom(r), id)
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, quiz)
}

func (s *Server) ListQuestionsFunc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		returnError(w, r, err)
		return
	}
	questions, err := s.svc.Questions.ListQuestions(r.Context(), callerFrom(r), id)
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, questions)
}

func (s *Server) AddQuestionFunc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		returnError(w, r, err)
		return
	}
	var req questionRequest
	if !decode(w, r, &req) {
		return
	}
	question, err := s.svc.Questions.AddQuestion(r.Context(), callerFrom(r), id, app.QuestionInput{
		Text:    req.Text,
		Order:   req.Order,
		Answers: answerInputs(req.Answers),
	})
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusCreated, question)
}

func (s *Server) GetQuestionFunc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		returnError(w, r, err)
		return
	}
	question, err := s.svc.Questions.GetQuestion(r.Context(), callerFrom(r), id)
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, question)
}

func (s *Server) UpdateQuestionFunc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		returnError(w, r, err)
		return
	}
	var req questionPatchRequest
	if !decode(w, r, &req) {
		return
	}
	question, err := s.svc.Questions.UpdateQuestion(r.Context(), callerFrom(r), id, app.QuestionPatch{
		Text:    req.Text,
		Order:   req.Order,
		Answers: answerInputs(req.Answers),
	})
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, question)
}

func (s *Server) DeleteQuestionFunc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		returnError(w, r, err)
		return
	}
	if err := s.svc.Questions.DeleteQuestion(r.Context(), callerFrom(r), id); err != nil {
		returnError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) AddAnswerFunc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		returnError(w, r, err)
		return
	}
	var req answerRequest
	if !decode(w, r, &req) {
		return
	}
	question, err := s.svc.Questions.AddAnswer(r.Context(), callerFrom(r), id, req.input())
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusCreated, question)
}

func (s *Server) ReorderAnswersFunc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		returnError(w, r, err)
		return
	}
	question, err := s.svc.Questions.ReorderAnswers(r.Context(), callerFrom(r), id)
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, question)
}

func (s *Server) UpdateAnswerFunc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		returnError(w, r, err)
		return
	}
	var req answerPatchRequest
	if !decode(w, r, &req) {
		return
	}
	question, err := s.svc.Questions.UpdateAnswer(r.Context(), callerFrom(r), id, app.AnswerPatch{
		Text:    req.Text,
		Correct: req.Correct,
		Order:   req.Order,
	})
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, question)
}

func (s *Server) DeleteAnswerFunc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		returnError(w, r, err)
		return
	}
	question, err := s.svc.Questions.DeleteAnswer(r.Context(), callerFrom(r), id)
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, question)
}

func (s *Server) ListActiveQuizzesFunc(w http.ResponseWriter, r *http.Request) {
	quizzes, err := s.svc.Catalog.ListActiveQuizzes(r.Context())
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, quizzes)
}

func (s *Server) PlayQuizFunc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		returnError(w, r, err)
		return
	}
	quiz, err := s.svc.Catalog.PlayableQuiz(r.Context(), callerFrom(r), id)
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, quiz)
}

func (s *Server) PlayQuizByCodeFunc(w http.ResponseWriter, r *http.Request) {
	quiz, err := s.svc.Catalog.PlayableQuizByCode(r.Context(), callerFrom(r), mux.Vars(r)["code"])
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, quiz)
}

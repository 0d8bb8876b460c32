package http

import (
	"net/http"

	"quizdesk-service/internal/app"
)

func (s *Server) RegisterFunc(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := s.svc.Auth.Register(r.Context(), app.Registration{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusCreated, user)
}

func (s *Server) LoginFunc(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	token, user, err := s.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, tokenResponse{Token: token, User: user})
}

func (s *Server) MeFunc(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Auth.Me(r.Context(), callerFrom(r))
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, user)
}

func (s *Server) UpdateProfileFunc(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := s.svc.Auth.UpdateProfile(r.Context(), callerFrom(r), req.patch())
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, user)
}

func (s *Server) GetUserFunc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		returnError(w, r, err)
		return
	}
	user, err := s.svc.Auth.GetUser(r.Context(), callerFrom(r), id)
	if err != nil {
		returnError(w, r, err)
		return
	}
	returnJSON(w, http.StatusOK, user)
}

// ForgotPasswordFunc always answers 202 so that callers cannot probe for accounts.
func (s *Server) ForgotPasswordFunc(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.Auth.ForgotPassword(r.Context(), req.Email); err != nil {
		returnError(w, r, err)
		return
	}
	returnHTTPMessage(w, http.StatusAccepted, "accepted", "if the address exists, a reset link has been sent")
}

func (s *Server) ResetPasswordFunc(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.Auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		returnError(w, r, err)
		return
	}
	returnHTTPMessage(w, http.StatusOK, "updated", "password updated")
}

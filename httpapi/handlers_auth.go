package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/middleware"
)

type signupResponse struct {
	envelope
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type userResponse struct {
	envelope
	User goAccount.Profile `json:"user"`
}

type signinResponse struct {
	envelope
	User        goAccount.Profile `json:"user"`
	AccessToken string            `json:"accessToken"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Ping(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: statusSuccess, Message: "Api working well!"})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req goAccount.SignupRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.engine.Signup(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, signupResponse{
		envelope:  envelope{Status: statusSuccess, Message: "Verification code sent successfully to your email address."},
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req goAccount.VerifyRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	account, err := s.engine.VerifyAccount(r.Context(), req.ActivationToken, req.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{
		envelope: envelope{
			Status:  statusSuccess,
			Message: fmt.Sprintf("Success, %s! Your account is now activated.", account.FirstName),
		},
		User: account.Profile(),
	})
}

func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	var req goAccount.SigninRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	sess, err := s.engine.Signin(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.SetCookie(w, sess.Cookie)
	writeJSON(w, http.StatusOK, signinResponse{
		envelope:    envelope{Status: statusSuccess, Message: fmt.Sprintf("Welcome back %s.", sess.Profile.FirstName)},
		User:        sess.Profile,
		AccessToken: sess.AccessToken,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.AccountIDFromContext(r.Context())
	profile, err := s.engine.Profile(r.Context(), id)
	if err != nil {
		// The token outlived its account.
		if errors.Is(err, goAccount.ErrAccountNotFound) {
			err = goAccount.ErrUnauthorized
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		envelope: envelope{Status: statusSuccess},
		User:     profile,
	})
}

func (s *Server) handleSignout(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.AccountIDFromContext(r.Context())
	cookie, err := s.engine.Signout(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.SetCookie(w, cookie)
	w.WriteHeader(http.StatusNoContent)
}

package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
)

const (
	defaultSignInLimit = 20
	maxSignInLimit     = 100
)

type statusRequest struct {
	Reason string `json:"reason"`
}

// accountView is the admin view of an account. It adds status and login
// addresses to the public profile; the password hash is never included.
type accountView struct {
	goAccount.Profile
	Status  goAccount.AccountStatus `json:"accountStatus"`
	LoginIP goAccount.LoginIP       `json:"loginIp"`
}

type accountResponse struct {
	envelope
	Account accountView `json:"account"`
}

type signInView struct {
	IP         string    `json:"ip"`
	UserAgent  string    `json:"userAgent"`
	SignedInAt time.Time `json:"signedInAt"`
}

type signInsResponse struct {
	envelope
	SignIns []signInView `json:"signIns"`
}

func newAccountView(a goAccount.Account) accountView {
	return accountView{Profile: a.Profile(), Status: a.Status, LoginIP: a.LoginIP}
}

type statusChange func(ctx context.Context, id, reason string) (goAccount.Account, error)

func (s *Server) changeStatus(w http.ResponseWriter, r *http.Request, change statusChange, message string) {
	var req statusRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}

	account, err := change(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{
		envelope: envelope{Status: statusSuccess, Message: message},
		Account:  newAccountView(account),
	})
}

func (s *Server) handleBan(w http.ResponseWriter, r *http.Request) {
	s.changeStatus(w, r, s.engine.BanAccount, "Account banned.")
}

func (s *Server) handleUnban(w http.ResponseWriter, r *http.Request) {
	s.changeStatus(w, r, func(ctx context.Context, id, _ string) (goAccount.Account, error) {
		return s.engine.UnbanAccount(ctx, id)
	}, "Account unbanned.")
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	s.changeStatus(w, r, s.engine.DisableAccount, "Account disabled.")
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	s.changeStatus(w, r, func(ctx context.Context, id, _ string) (goAccount.Account, error) {
		return s.engine.EnableAccount(ctx, id)
	}, "Account enabled.")
}

func (s *Server) handleSignIns(w http.ResponseWriter, r *http.Request) {
	limit := defaultSignInLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, r, &goAccount.ValidationError{Fields: map[string]string{"limit": "must be a positive integer"}})
			return
		}
		limit = min(n, maxSignInLimit)
	}

	id := r.PathValue("id")
	if _, err := s.engine.Account(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}

	details, err := s.history.SignIns(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	views := make([]signInView, 0, len(details))
	for _, d := range details {
		views = append(views, signInView{IP: d.IP, UserAgent: d.UserAgent, SignedInAt: d.SignedInAt})
	}
	writeJSON(w, http.StatusOK, signInsResponse{
		envelope: envelope{Status: statusSuccess},
		SignIns:  views,
	})
}

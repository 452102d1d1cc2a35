package http

import (
	"net/http"
	"strings"
	"time"

	"fintrack/internal/services"
)

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Active   bool   `json:"active"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if resp := DecodeJSON(w, r, &in); resp != nil {
		resp.Write(w)
		return
	}
	in.Username = sanitizeInput(in.Username)
	in.Email = sanitizeInput(in.Email)

	u, err := s.deps.Accounts.Register(r.Context(), in)
	if err != nil {
		s.writeError(w, r, "Register", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).JSON(map[string]any{
		"user":    userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Active: u.Active},
		"message": "check your email to activate the account",
	}).Write(w)
}

func (s *Server) handleValidateUsername(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
	}
	if resp := DecodeJSON(w, r, &in); resp != nil {
		resp.Write(w)
		return
	}
	s.writeCheck(w, r, "username", s.deps.Accounts.CheckUsername(r.Context(), sanitizeInput(in.Username)))
}

func (s *Server) handleValidateEmail(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if resp := DecodeJSON(w, r, &in); resp != nil {
		resp.Write(w)
		return
	}
	s.writeCheck(w, r, "email", s.deps.Accounts.CheckEmail(r.Context(), sanitizeInput(in.Email)))
}

// writeCheck answers {"<field>_valid": true} or {"<field>_error": msg}.
func (s *Server) writeCheck(w http.ResponseWriter, r *http.Request, field string, err error) {
	if err == nil {
		NewJSONResponse().JSON(map[string]bool{field + "_valid": true}).Write(w)
		return
	}
	status, msg, ok := errorStatus(err)
	if !ok {
		s.internalError(w, r, "Validate "+field, err)
		return
	}
	FieldError(status, field+"_error", msg).Write(w)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	u, err := s.deps.Accounts.Activate(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeError(w, r, "Activate", err)
		return
	}
	NewJSONResponse().JSON(map[string]any{
		"user":    userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Active: u.Active},
		"message": "account activated",
	}).Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if resp := DecodeJSON(w, r, &in); resp != nil {
		resp.Write(w)
		return
	}
	sess, err := s.deps.Accounts.Login(r.Context(), sanitizeInput(in.Username), in.Password)
	if err != nil {
		s.writeError(w, r, "Login", err)
		return
	}
	u := sess.User
	NewJSONResponse().
		Cookie(s.sessionCookie(sess.ID, sess.ExpiresAt)).
		JSON(map[string]any{
			"user": userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Active: u.Active},
		}).
		Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		if err := s.deps.Accounts.Logout(r.Context(), c.Value); err != nil {
			s.internalError(w, r, "Logout failed", err)
			return
		}
	}
	NewJSONResponse().Status(http.StatusNoContent).Cookie(s.sessionCookie("", time.Time{})).Write(w)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if resp := DecodeJSON(w, r, &in); resp != nil {
		resp.Write(w)
		return
	}
	if err := s.deps.Accounts.RequestPasswordReset(r.Context(), strings.TrimSpace(in.Email)); err != nil {
		// The answer must not reveal whether the address exists.
		s.logger.ErrorContext(r.Context(), "Password reset request failed", "error", err)
	}
	NewJSONResponse().Status(http.StatusAccepted).JSON(map[string]string{
		"message": "if the address belongs to an active account, a reset link is on its way",
	}).Write(w)
}

func (s *Server) handleSetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if resp := DecodeJSON(w, r, &in); resp != nil {
		resp.Write(w)
		return
	}
	if err := s.deps.Accounts.SetPassword(r.Context(), strings.TrimSpace(in.Token), in.Password); err != nil {
		s.writeError(w, r, "Set password", err)
		return
	}
	NewJSONResponse().JSON(map[string]string{"message": "password updated"}).Write(w)
}

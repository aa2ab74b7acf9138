package http

import (
	"net/http"
	"strings"

	"finboard/internal/core"
	"finboard/internal/log"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.fail(w, r, log.OpLogin, err)
		return
	}

	email := strings.ToLower(p.Get("email"))
	password := p.Get("password")
	if email == "" {
		p.AddError("email", "Email is required")
	}
	if password == "" {
		p.AddError("password", "Password is required")
	}
	if err := p.Err(); err != nil {
		s.fail(w, r, log.OpLogin, err)
		return
	}

	token, user, err := s.svc.Auth.Login(r.Context(), email, password)
	if err != nil {
		s.fail(w, r, log.OpLogin, err)
		return
	}
	NewJSONResponse().
		Session(token, user.ID).
		Data(user).
		Message("Login successful").
		Write(w)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}

	u := core.User{
		Name:           p.Get("name"),
		Email:          p.Get("email"),
		NotifyEmail:    p.Bool("notifyEmail"),
		TelegramChatID: p.Int64("telegramChatId"),
	}
	password := p.Get("password")
	if err := p.Err(); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}

	created, err := s.svc.Auth.Register(r.Context(), u, password)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Data(created).
		Message("User registered").
		Write(w)
}

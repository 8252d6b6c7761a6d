package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dom/chatrelay/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	development bool
}

func NewAuthHandler(authService *service.AuthService, development bool) *AuthHandler {
	return &AuthHandler{authService: authService, development: development}
}

type SignupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupResponse struct {
	Success bool       `json:"success"`
	User    SignupUser `json:"user"`
}

type SignupUser struct {
	Email string `json:"email"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.authService.Register(r.Context(), service.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		writeServiceError(w, err, h.development)
		return
	}

	writeJSON(w, http.StatusCreated, SignupResponse{
		Success: true,
		User:    SignupUser{Email: user.Email},
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, err, h.development)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Token:   result.Token,
	})
}

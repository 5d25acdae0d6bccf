package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"
)

const (
	identifierMinLen = 3
	identifierMaxLen = 255
	passwordMinLen   = 6
	passwordMaxLen   = 100
)

// Handler exposes the auth flows over HTTP with JSend responses.
type Handler struct {
	log *slog.Logger
	cfg Config
	svc *Service
}

// NewHandler constructs an auth Handler over svc.
func NewHandler(log *slog.Logger, cfg Config, svc *Service) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, cfg: cfg.withDefaults(), svc: svc}
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /api/auth/register", h.handleRegister)
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/auth/refresh", h.handleRefresh)
	mux.HandleFunc("POST /api/auth/logout", h.handleLogout)
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		WriteFail(w, http.StatusBadRequest, map[string]string{"body": "invalid request body"})
		return
	}

	identifier := strings.TrimSpace(req.Identifier)
	if problems := validateCredentials(identifier, req.Password); len(problems) > 0 {
		WriteFail(w, http.StatusBadRequest, problems)
		return
	}

	pair, err := h.svc.Register(r.Context(), identifier, req.Password)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			WriteFail(w, http.StatusConflict, map[string]string{"identifier": "already registered"})
			return
		}
		h.log.Error("auth.register.fail", "err", err)
		WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	WriteSuccess(w, http.StatusCreated, toTokenPairResponse(pair))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		WriteFail(w, http.StatusBadRequest, map[string]string{"body": "invalid request body"})
		return
	}

	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || req.Password == "" {
		WriteFail(w, http.StatusBadRequest, map[string]string{"body": "identifier and password are required"})
		return
	}

	pair, err := h.svc.Login(r.Context(), identifier, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			// One message for unknown identifier and wrong password; the
			// response must not reveal which one it was.
			WriteFail(w, http.StatusUnauthorized, map[string]string{"credentials": "invalid identifier or password"})
			return
		}
		h.log.Error("auth.login.fail", "err", err)
		WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	WriteSuccess(w, http.StatusOK, toTokenPairResponse(pair))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		WriteFail(w, http.StatusBadRequest, map[string]string{"body": "invalid request body"})
		return
	}

	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		WriteFail(w, http.StatusBadRequest, map[string]string{"refreshToken": "refreshToken is required"})
		return
	}

	pair, err := h.svc.Refresh(r.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidToken),
			errors.Is(err, ErrTokenExpired),
			errors.Is(err, ErrTokenRevoked),
			errors.Is(err, ErrWrongTokenKind):
			// The precise rejection reason stays in the logs; the client
			// sees one generic message for all four.
			h.log.Info("auth.refresh.reject", "reason", err.Error())
			WriteFail(w, http.StatusUnauthorized, map[string]string{"refreshToken": "invalid refresh token"})
		default:
			h.log.Error("auth.refresh.fail", "err", err)
			WriteError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	WriteSuccess(w, http.StatusOK, toTokenPairResponse(pair))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		WriteFail(w, http.StatusBadRequest, map[string]string{"body": "invalid request body"})
		return
	}

	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		WriteFail(w, http.StatusBadRequest, map[string]string{"refreshToken": "refreshToken is required"})
		return
	}

	if err := h.svc.Logout(r.Context(), raw); err != nil {
		h.log.Error("auth.logout.fail", "err", err)
		WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	WriteSuccess(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// ---- helpers ----

// RequireAccount authenticates the request's bearer token and returns the
// account id. On failure it writes the 401 itself and returns ok=false.
// Shared with every handler that sits behind authentication.
func (h *Handler) RequireAccount(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := BearerToken(r)
	if raw == "" {
		WriteFail(w, http.StatusUnauthorized, map[string]string{"token": "missing bearer token"})
		return 0, false
	}
	id, err := h.svc.AuthenticateAccess(raw)
	if err != nil {
		WriteFail(w, http.StatusUnauthorized, map[string]string{"token": "invalid token"})
		return 0, false
	}
	return id, true
}

// BearerToken extracts the token from an Authorization: Bearer header.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func validateCredentials(identifier, password string) map[string]string {
	problems := make(map[string]string)

	if n := utf8.RuneCountInString(identifier); n < identifierMinLen || n > identifierMaxLen {
		problems["identifier"] = "identifier must be between 3 and 255 characters"
	}
	if n := utf8.RuneCountInString(password); n < passwordMinLen || n > passwordMaxLen {
		problems["password"] = "password must be between 6 and 100 characters"
	}

	if len(problems) == 0 {
		return nil
	}
	return problems
}

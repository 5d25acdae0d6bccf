// Package user serves the authenticated profile endpoints: viewing the
// account, uploading an avatar, and deleting the account.
package user

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"beacon/internal/account"
	"beacon/internal/auth"
	"beacon/internal/notify"
	"beacon/internal/refresh"
	"beacon/internal/storage"
)

// maxAvatarBytes caps avatar uploads.
const maxAvatarBytes = 5 << 20 // 5 MiB

// Authenticator resolves a request to an account id, writing the 401 itself
// on failure. Satisfied by the auth handler.
type Authenticator interface {
	RequireAccount(w http.ResponseWriter, r *http.Request) (int64, bool)
}

// Handler exposes the profile endpoints.
type Handler struct {
	log *slog.Logger

	authn      Authenticator
	accounts   account.Store
	refresh    refresh.Store
	blobs      storage.BlobStore
	dispatcher *notify.Dispatcher
}

// NewHandler constructs a profile Handler.
func NewHandler(log *slog.Logger, authn Authenticator, accounts account.Store, refreshStore refresh.Store, blobs storage.BlobStore, dispatcher *notify.Dispatcher) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:        log,
		authn:      authn,
		accounts:   accounts,
		refresh:    refreshStore,
		blobs:      blobs,
		dispatcher: dispatcher,
	}
}

// Register wires profile routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("GET /api/user/me", h.handleMe)
	mux.HandleFunc("POST /api/user/avatar", h.handleAvatarUpload)
	mux.HandleFunc("DELETE /api/user", h.handleDelete)
}

type profileResponse struct {
	ID         int64     `json:"id"`
	Identifier string    `json:"identifier"`
	AvatarURL  *string   `json:"avatarUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toProfileResponse(a account.Account) profileResponse {
	return profileResponse{
		ID:         a.ID,
		Identifier: a.Identifier,
		AvatarURL:  a.AvatarURL,
		CreatedAt:  a.CreatedAt,
	}
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.authn.RequireAccount(w, r)
	if !ok {
		return
	}

	acc, err := h.accounts.FindByID(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			// Valid token for a deleted account.
			auth.WriteFail(w, http.StatusUnauthorized, map[string]string{"token": "account no longer exists"})
			return
		}
		h.log.Error("user.me.fail", "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	auth.WriteSuccess(w, http.StatusOK, toProfileResponse(acc))
}

func (h *Handler) handleAvatarUpload(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.authn.RequireAccount(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	acc, err := h.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			auth.WriteFail(w, http.StatusUnauthorized, map[string]string{"token": "account no longer exists"})
			return
		}
		h.log.Error("user.avatar.lookup.fail", "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	file, header, err := r.FormFile("avatar")
	if err != nil {
		auth.WriteFail(w, http.StatusBadRequest, map[string]string{"avatar": "avatar file is required"})
		return
	}
	defer func() { _ = file.Close() }()

	if ct := header.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		auth.WriteFail(w, http.StatusBadRequest, map[string]string{"avatar": "avatar must be an image"})
		return
	}

	url, err := h.blobs.Save(ctx, file, filepath.Ext(header.Filename))
	if err != nil {
		h.log.Error("user.avatar.save.fail", "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.accounts.UpdateAvatar(ctx, accountID, url); err != nil {
		_ = h.blobs.Delete(ctx, url)
		h.log.Error("user.avatar.update.fail", "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Old blob goes only after the new reference is persisted; losing the
	// delete leaks a file, losing the update would have lost the avatar.
	if acc.AvatarURL != nil && *acc.AvatarURL != url {
		if err := h.blobs.Delete(ctx, *acc.AvatarURL); err != nil {
			h.log.Warn("user.avatar.cleanup.fail", "err", err, "url", *acc.AvatarURL)
		}
	}

	h.dispatcher.NotifyAvatarChanged(accountID, url)
	h.log.Info("user.avatar.updated", "account_id", accountID)

	auth.WriteSuccess(w, http.StatusOK, map[string]string{"avatarUrl": url})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.authn.RequireAccount(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	acc, err := h.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			auth.WriteFail(w, http.StatusUnauthorized, map[string]string{"token": "account no longer exists"})
			return
		}
		h.log.Error("user.delete.lookup.fail", "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if acc.AvatarURL != nil {
		if err := h.blobs.Delete(ctx, *acc.AvatarURL); err != nil {
			h.log.Warn("user.delete.avatar.fail", "err", err, "url", *acc.AvatarURL)
		}
	}

	if err := h.accounts.Delete(ctx, accountID); err != nil && !errors.Is(err, account.ErrNotFound) {
		h.log.Error("user.delete.fail", "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.refresh.DeleteAllForAccount(ctx, accountID); err != nil {
		h.log.Error("user.delete.refresh.fail", "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.dispatcher.DisconnectAccount(accountID)
	h.log.Info("user.deleted", "account_id", accountID)

	auth.WriteSuccess(w, http.StatusOK, map[string]string{"message": "account deleted"})
}

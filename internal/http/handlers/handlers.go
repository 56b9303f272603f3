package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/smartdoor/doorman/internal/approval"
	"github.com/smartdoor/doorman/internal/http/response"
	"github.com/smartdoor/doorman/internal/intake"
	"github.com/smartdoor/doorman/internal/platform/photo"
	"github.com/smartdoor/doorman/internal/registry"
	"github.com/smartdoor/doorman/internal/store"
	"github.com/smartdoor/doorman/internal/verify"
	"github.com/smartdoor/doorman/pkg/auth"
	"github.com/smartdoor/doorman/pkg/config"
)

type Handlers struct {
	intake      *intake.Service
	coordinator *approval.Coordinator
	engine      *verify.Engine
	visitors    *registry.Visitors
	photos      photo.Store
	config      *config.Config
}

func New(intakeSvc *intake.Service, coordinator *approval.Coordinator, engine *verify.Engine, visitors *registry.Visitors, photos photo.Store, cfg *config.Config) *Handlers {
	return &Handlers{
		intake:      intakeSvc,
		coordinator: coordinator,
		engine:      engine,
		visitors:    visitors,
		photos:      photos,
		config:      cfg,
	}
}

// RequireOwner gates the dashboard and decision endpoints behind the
// owner's bearer token.
func (h *Handlers) RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Unauthorized(w, "Missing or invalid authorization header")
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		claims, err := auth.Parse(token, h.config.Auth.JWTSecret)
		if err != nil || claims.Role != "owner" {
			response.Unauthorized(w, "Invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return false
	}
	return true
}

// normalizePhone canonicalizes phone input once at the HTTP boundary:
// strip spaces, default to a +1 country prefix.
func normalizePhone(phone string) string {
	phone = strings.ReplaceAll(strings.TrimSpace(phone), " ", "")
	if phone == "" {
		return ""
	}
	if !strings.HasPrefix(phone, "+") {
		phone = "+1" + phone
	}
	return phone
}

// writeServiceError maps core errors onto the response envelope.
func writeServiceError(w http.ResponseWriter, err error) {
	var dup *intake.DuplicateActiveVisitError
	switch {
	case errors.As(err, &dup):
		response.ErrorData(w, http.StatusConflict,
			"You are already registered as an existing visitor.",
			response.CodeDuplicateActiveVisit,
			map[string]any{"faceId": dup.FaceID, "visitorName": dup.Name})
	case errors.Is(err, store.ErrNotFound):
		response.NotFound(w, "Record not found")
	case errors.Is(err, store.ErrAlreadyExists):
		response.Error(w, http.StatusConflict, "Record already exists", response.CodeAlreadyExists)
	case errors.Is(err, store.ErrConflict):
		response.Error(w, http.StatusConflict, "Lost a concurrent update race", response.CodeConflict)
	case errors.Is(err, registry.ErrExhaustedKeyspace):
		response.Error(w, http.StatusInternalServerError, "Could not generate a passcode", response.CodeExhaustedKeyspace)
	default:
		response.Upstream(w, "A dependency is unavailable. Please retry.")
	}
}

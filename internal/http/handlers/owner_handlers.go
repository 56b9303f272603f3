package handlers

import (
	"net/http"
	"strings"

	"github.com/alexedwards/argon2id"

	"github.com/smartdoor/doorman/internal/approval"
	"github.com/smartdoor/doorman/internal/domain"
	"github.com/smartdoor/doorman/internal/http/response"
	"github.com/smartdoor/doorman/pkg/auth"
	"github.com/smartdoor/doorman/pkg/logger"
)

type ownerLoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OwnerLogin exchanges the owner's credentials for a dashboard token.
func (h *Handlers) OwnerLogin(w http.ResponseWriter, r *http.Request) {
	var req ownerLoginReq
	if !decodeBody(w, r, &req) {
		return
	}

	owner := h.config.Owner
	if owner.PasswordHash == "" || !strings.EqualFold(req.Email, owner.Email) {
		response.Unauthorized(w, "Invalid credentials")
		return
	}
	match, err := argon2id.ComparePasswordAndHash(req.Password, owner.PasswordHash)
	if err != nil || !match {
		response.Unauthorized(w, "Invalid credentials")
		return
	}

	token, err := auth.NewOwnerToken(owner.Email, h.config.Auth.JWTSecret, h.config.Auth.OwnerTokenTTL)
	if err != nil {
		response.Upstream(w, "Could not create session")
		return
	}

	response.OK(w, http.StatusOK, "Logged in.", map[string]any{
		"token":     token,
		"expiresIn": int64(h.config.Auth.OwnerTokenTTL.Seconds()),
	})
}

type decisionReq struct {
	FaceID   string `json:"faceId"`
	Decision string `json:"action"`
}

// Decide applies the owner's approve/reject action to a pending visit.
func (h *Handlers) Decide(w http.ResponseWriter, r *http.Request) {
	var req decisionReq
	if !decodeBody(w, r, &req) {
		return
	}

	req.FaceID = strings.TrimSpace(req.FaceID)
	decision, ok := approval.ParseDecision(strings.TrimSpace(req.Decision))
	if req.FaceID == "" || !ok {
		response.BadRequest(w, `Action must be "approve" or "reject"`)
		return
	}

	outcome, err := h.coordinator.Decide(r.Context(), req.FaceID, decision)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	data := map[string]any{
		"faceId":         outcome.FaceID,
		"status":         string(outcome.Status),
		"alreadyDecided": outcome.AlreadyDecided,
	}
	if outcome.Warning != "" {
		data["warning"] = outcome.Warning
	}
	response.OK(w, http.StatusOK, "Visitor "+string(outcome.Status)+".", data)
}

// ListPending returns visits awaiting a decision, newest first.
func (h *Handlers) ListPending(w http.ResponseWriter, r *http.Request) {
	h.listByStatus(w, r, domain.VisitorPending)
}

// ListApproved returns approved visits, newest first.
func (h *Handlers) ListApproved(w http.ResponseWriter, r *http.Request) {
	h.listByStatus(w, r, domain.VisitorApproved)
}

func (h *Handlers) listByStatus(w http.ResponseWriter, r *http.Request, status domain.VisitorStatus) {
	visitors, err := h.visitors.ListByStatus(r.Context(), status)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	dtos := make([]map[string]any, 0, len(visitors))
	for _, v := range visitors {
		dtos = append(dtos, map[string]any{
			"faceId":      v.FaceID,
			"visitorName": v.Name,
			"phone":       v.Phone,
			"visitReason": v.VisitReason,
			"status":      string(v.Status),
			"photoUrl":    h.photoURL(r, v.PhotoRef),
			"createdAt":   v.CreatedAt,
			"expiresAt":   v.ExpiresAt,
		})
	}

	response.OK(w, http.StatusOK, "OK", map[string]any{
		"visitors": dtos,
		"count":    len(dtos),
	})
}

// photoURL resolves a stored photo reference for display: already-durable
// URLs pass through, bare object keys get a short-lived presigned URL.
func (h *Handlers) photoURL(r *http.Request, ref string) string {
	if ref == "" || strings.Contains(ref, "://") {
		return ref
	}
	url, err := h.photos.PresignGet(r.Context(), ref)
	if err != nil {
		logger.WarnContext(r.Context(), "could not presign photo", "ref", ref, "error", err)
		return ""
	}
	return url
}

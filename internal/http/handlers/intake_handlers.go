package handlers

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/smartdoor/doorman/internal/http/response"
	"github.com/smartdoor/doorman/internal/intake"
)

type submitVisitReq struct {
	FaceID      string `json:"faceId"`
	Name        string `json:"visitorName"`
	Phone       string `json:"visitorPhone"`
	Email       string `json:"visitorEmail"`
	VisitReason string `json:"visitReason"`
	Photo       string `json:"photo"`
}

// SubmitVisit handles the visitor entry form.
func (h *Handlers) SubmitVisit(w http.ResponseWriter, r *http.Request) {
	var req submitVisitReq
	if !decodeBody(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Phone = normalizePhone(req.Phone)
	if req.Name == "" || req.Phone == "" || req.Photo == "" {
		response.BadRequest(w, "Missing required fields")
		return
	}

	photoBytes, err := decodePhoto(req.Photo)
	if err != nil {
		response.BadRequest(w, "Invalid photo encoding")
		return
	}

	result, err := h.intake.Submit(r.Context(), intake.SubmitRequest{
		FaceID:      strings.TrimSpace(req.FaceID),
		Name:        req.Name,
		Phone:       req.Phone,
		Email:       strings.TrimSpace(req.Email),
		VisitReason: strings.TrimSpace(req.VisitReason),
		Photo:       photoBytes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, http.StatusCreated, "Visitor details submitted! OTP sent via SMS, owner notified.", map[string]any{
		"faceId":   result.FaceID,
		"otp":      result.Code,
		"photoUrl": result.PhotoRef,
	})
}

type detectionReq struct {
	FaceID   string `json:"faceId"`
	PhotoKey string `json:"photoKey"`
}

// Detect records an unknown face seen at the door.
func (h *Handlers) Detect(w http.ResponseWriter, r *http.Request) {
	var req detectionReq
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PhotoKey == "" {
		response.BadRequest(w, "Missing photoKey")
		return
	}

	result, err := h.intake.Detect(r.Context(), intake.DetectRequest{
		FaceID:   strings.TrimSpace(req.FaceID),
		PhotoKey: req.PhotoKey,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, http.StatusCreated, "Visitor recorded, owner notified.", map[string]any{
		"faceId":   result.FaceID,
		"photoUrl": result.PhotoURL,
	})
}

// decodePhoto accepts either a raw base64 payload or a data URL.
func decodePhoto(s string) ([]byte, error) {
	if idx := strings.Index(s, ","); idx != -1 {
		s = s[idx+1:]
	}
	return base64.StdEncoding.DecodeString(s)
}

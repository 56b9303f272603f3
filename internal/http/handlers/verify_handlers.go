package handlers

import (
	"net/http"
	"strings"

	"github.com/smartdoor/doorman/internal/http/response"
	"github.com/smartdoor/doorman/internal/verify"
)

type verifyReq struct {
	OTP   string `json:"otp"`
	Phone string `json:"phone"`
}

// Verify redeems an OTP at the door.
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyReq
	if !decodeBody(w, r, &req) {
		return
	}

	req.OTP = strings.TrimSpace(req.OTP)
	req.Phone = normalizePhone(req.Phone)
	if req.OTP == "" || req.Phone == "" {
		response.BadRequest(w, "Missing otp or phone")
		return
	}

	result, err := h.engine.Verify(r.Context(), req.OTP, req.Phone)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if !result.Granted {
		status, message := denyStatus(result.Reason)
		response.ErrorData(w, status, message, string(result.Reason), map[string]any{
			"granted": false,
		})
		return
	}

	response.OK(w, http.StatusOK, "OTP verified successfully. Access granted.", map[string]any{
		"granted":     true,
		"faceId":      result.FaceID,
		"visitorName": result.Name,
	})
}

func denyStatus(reason verify.DenyReason) (int, string) {
	switch reason {
	case verify.OtpInvalid:
		return http.StatusBadRequest, "Invalid OTP"
	case verify.PhoneMismatch:
		return http.StatusBadRequest, "This OTP does not match your phone number"
	case verify.OtpExpired:
		return http.StatusBadRequest, "OTP has expired. Please request a new one."
	case verify.VisitRejected:
		return http.StatusForbidden, "Your visit request was rejected by the owner."
	case verify.VisitPending:
		return http.StatusForbidden, "Your visit has not been approved yet."
	case verify.OtpAlreadyUsed:
		return http.StatusConflict, "This OTP has already been used."
	default:
		return http.StatusBadRequest, "OTP verification failed"
	}
}

// Package verify validates a redemption attempt against both registries and
// atomically consumes the passcode. Everything before the final
// compare-and-swap is a pure read and may be repeated freely; only the
// winning CAS has a side effect.
package verify

import (
	"context"
	"errors"
	"time"

	"github.com/smartdoor/doorman/internal/domain"
	"github.com/smartdoor/doorman/internal/registry"
	"github.com/smartdoor/doorman/internal/store"
	"github.com/smartdoor/doorman/pkg/events"
	"github.com/smartdoor/doorman/pkg/logger"
)

// DenyReason is the stable machine code a client branches on.
type DenyReason string

const (
	OtpInvalid     DenyReason = "OTP_INVALID"
	PhoneMismatch  DenyReason = "PHONE_MISMATCH"
	OtpExpired     DenyReason = "OTP_EXPIRED"
	VisitRejected  DenyReason = "VISIT_REJECTED"
	VisitPending   DenyReason = "VISIT_PENDING"
	OtpAlreadyUsed DenyReason = "OTP_ALREADY_USED"
)

type Result struct {
	Granted bool
	FaceID  string
	Name    string
	Reason  DenyReason
}

type Engine struct {
	visitors  *registry.Visitors
	passcodes *registry.Passcodes
	bus       events.Publisher
}

func NewEngine(visitors *registry.Visitors, passcodes *registry.Passcodes, bus events.Publisher) *Engine {
	return &Engine{visitors: visitors, passcodes: passcodes, bus: bus}
}

// Verify checks the code and phone and, if everything lines up, marks the
// passcode used. Concurrent attempts on the same code yield exactly one
// grant: losing the approved->used compare-and-swap denies OtpAlreadyUsed.
func (e *Engine) Verify(ctx context.Context, code, phone string) (*Result, error) {
	p, err := e.passcodes.Get(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return e.deny(ctx, code, OtpInvalid), nil
	}
	if err != nil {
		return nil, err
	}

	if p.Phone != "" && p.Phone != phone {
		return e.deny(ctx, code, PhoneMismatch), nil
	}

	if p.Expired(time.Now().UTC()) {
		return e.deny(ctx, code, OtpExpired), nil
	}

	if p.Status == domain.PasscodeRejected {
		return e.deny(ctx, code, VisitRejected), nil
	}

	// Cross-check the linked visitor. The visitor record is the decision of
	// record: a rejection there blocks redemption even if the passcode
	// propagation never landed. A failed lookup is logged, not fatal.
	name := ""
	visitorStatus := domain.VisitorApproved
	if p.FaceID != "" {
		v, err := e.visitors.Get(ctx, p.FaceID)
		if err != nil {
			logger.WarnContext(ctx, "visitor cross-check failed", "face_id", p.FaceID, "error", err)
		} else {
			name = v.Name
			visitorStatus = v.Status
		}
	}
	if visitorStatus == domain.VisitorRejected {
		return e.deny(ctx, code, VisitRejected), nil
	}

	switch p.Status {
	case domain.PasscodeUsed:
		return e.deny(ctx, code, OtpAlreadyUsed), nil
	case domain.PasscodePending:
		// Not yet decided by the owner; redemption requires an explicit
		// approval first.
		return e.deny(ctx, code, VisitPending), nil
	case domain.PasscodeExpired:
		return e.deny(ctx, code, OtpExpired), nil
	}

	// The linchpin of the single-use guarantee: only one concurrent caller
	// wins this conditional write.
	_, err = e.passcodes.Transition(ctx, code, domain.PasscodeUsed, domain.PasscodeApproved)
	if errors.Is(err, store.ErrConflict) {
		return e.deny(ctx, code, OtpAlreadyUsed), nil
	}
	if err != nil {
		return nil, err
	}

	if err := e.bus.Publish(ctx, events.AccessGranted, events.AccessGrantedEvent{
		FaceID:    p.FaceID,
		Name:      name,
		Code:      code,
		GrantedAt: time.Now().UTC(),
	}); err != nil {
		logger.ErrorContext(ctx, "failed to publish access granted event", "face_id", p.FaceID, "error", err)
	}

	return &Result{Granted: true, FaceID: p.FaceID, Name: name}, nil
}

func (e *Engine) deny(ctx context.Context, code string, reason DenyReason) *Result {
	if err := e.bus.Publish(ctx, events.AccessDenied, events.AccessDeniedEvent{
		Code:     code,
		Reason:   string(reason),
		DeniedAt: time.Now().UTC(),
	}); err != nil {
		logger.DebugContext(ctx, "failed to publish access denied event", "error", err)
	}
	return &Result{Reason: reason}
}

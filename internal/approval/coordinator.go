// Package approval applies an owner's approve/reject decision across the
// visitor and passcode registries. The two records are updated
// independently, with no cross-entity transaction: the visitor transition
// goes first and is the decision of record, the passcode transition is
// best-effort propagation that only gates redemption.
package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smartdoor/doorman/internal/domain"
	"github.com/smartdoor/doorman/internal/platform/notify"
	"github.com/smartdoor/doorman/internal/registry"
	"github.com/smartdoor/doorman/internal/store"
	"github.com/smartdoor/doorman/pkg/events"
	"github.com/smartdoor/doorman/pkg/logger"
)

type Decision string

const (
	Approve Decision = "approve"
	Reject  Decision = "reject"
)

func ParseDecision(s string) (Decision, bool) {
	switch Decision(s) {
	case Approve, Reject:
		return Decision(s), true
	default:
		return "", false
	}
}

// Outcome reports what a decision call actually did. AlreadyDecided is set
// when a concurrent or duplicate request got there first; the call still
// succeeds, reporting the status of record. Warning carries the
// partial-success note when the passcode propagation failed.
type Outcome struct {
	FaceID         string
	Status         domain.VisitorStatus
	AlreadyDecided bool
	Warning        string
}

type Coordinator struct {
	visitors   *registry.Visitors
	passcodes  *registry.Passcodes
	dispatcher notify.Dispatcher
	bus        events.Publisher
	entryURL   string
}

func NewCoordinator(visitors *registry.Visitors, passcodes *registry.Passcodes, dispatcher notify.Dispatcher, bus events.Publisher, entryURL string) *Coordinator {
	return &Coordinator{
		visitors:   visitors,
		passcodes:  passcodes,
		dispatcher: dispatcher,
		bus:        bus,
		entryURL:   entryURL,
	}
}

// Decide applies the owner's decision. Safe to retry or duplicate: a lost
// race against another decision resolves into an idempotent success
// reporting the existing terminal status.
func (c *Coordinator) Decide(ctx context.Context, faceID string, decision Decision) (*Outcome, error) {
	v, err := c.visitors.Get(ctx, faceID)
	if err != nil {
		return nil, err
	}

	target := domain.VisitorApproved
	if decision == Reject {
		target = domain.VisitorRejected
	}

	v, err = c.visitors.Transition(ctx, faceID, target, domain.VisitorPending)
	if errors.Is(err, store.ErrConflict) {
		// Already decided by a racing caller; report what the record says.
		current, getErr := c.visitors.Get(ctx, faceID)
		if getErr != nil {
			return nil, getErr
		}
		if !current.Status.Terminal() {
			return nil, fmt.Errorf("visitor %s in unexpected status %s: %w", faceID, current.Status, store.ErrConflict)
		}
		logger.InfoContext(ctx, "decision already applied", "face_id", faceID, "status", current.Status)
		return &Outcome{FaceID: faceID, Status: current.Status, AlreadyDecided: true}, nil
	}
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{FaceID: faceID, Status: target}

	if v.OtpRef != "" {
		ptarget := domain.PasscodeApproved
		if decision == Reject {
			ptarget = domain.PasscodeRejected
		}
		if _, err := c.passcodes.Transition(ctx, v.OtpRef, ptarget, domain.PasscodePending); err != nil {
			// Non-fatal: the visitor status is the decision of record, the
			// passcode update only gates redemption.
			logger.WarnContext(ctx, "passcode propagation failed",
				"face_id", faceID, "code", v.OtpRef, "error", err)
			outcome.Warning = "passcode status could not be updated; visitor status is authoritative"
		}
	}

	c.notifyDecision(ctx, v, target)

	subject := events.VisitorApproved
	if target == domain.VisitorRejected {
		subject = events.VisitorRejected
	}
	if err := c.bus.Publish(ctx, subject, events.VisitorDecidedEvent{
		FaceID:    faceID,
		Status:    string(target),
		DecidedAt: time.Now().UTC(),
	}); err != nil {
		logger.ErrorContext(ctx, "failed to publish decision event", "face_id", faceID, "error", err)
	}

	return outcome, nil
}

// notifyDecision tells the visitor the outcome. Dispatch runs detached from
// the request: a slow or failing provider never blocks or reverts the
// transition that already committed.
func (c *Coordinator) notifyDecision(ctx context.Context, v *domain.Visitor, status domain.VisitorStatus) {
	if v.Phone == "" {
		return
	}
	n := notify.Decision(v.Phone, status, v.OtpRef, c.entryURL)

	go func(ctx context.Context) {
		if err := c.dispatcher.Dispatch(ctx, n); err != nil {
			logger.ErrorContext(ctx, "decision notification failed",
				"face_id", v.FaceID, "kind", n.Kind, "error", err)
		}
	}(context.WithoutCancel(ctx))
}

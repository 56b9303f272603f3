package domain

import "time"

type VisitorStatus string

const (
	VisitorPending  VisitorStatus = "pending"
	VisitorApproved VisitorStatus = "approved"
	VisitorRejected VisitorStatus = "rejected"
	VisitorExpired  VisitorStatus = "expired"
)

func ParseVisitorStatus(s string) (VisitorStatus, bool) {
	switch VisitorStatus(s) {
	case VisitorPending, VisitorApproved, VisitorRejected, VisitorExpired:
		return VisitorStatus(s), true
	default:
		return "", false
	}
}

// Terminal reports whether no further transition is permitted from s.
func (s VisitorStatus) Terminal() bool {
	return s == VisitorApproved || s == VisitorRejected || s == VisitorExpired
}

func (s VisitorStatus) CanTransitionTo(target VisitorStatus) bool {
	return s == VisitorPending && target != VisitorPending
}

// Visitor is one entry request, keyed by the face token assigned at intake.
// OtpRef links the currently issued passcode, if any. Visitor.Status is the
// source of truth for whether the visit was decided; the linked passcode only
// answers whether the code is still redeemable.
type Visitor struct {
	FaceID      string        `json:"face_id"`
	Name        string        `json:"name"`
	Phone       string        `json:"phone"`
	Email       string        `json:"email,omitempty"`
	VisitReason string        `json:"visit_reason,omitempty"`
	PhotoRef    string        `json:"photo_ref"`
	Status      VisitorStatus `json:"status"`
	OtpRef      string        `json:"otp_ref,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	ApprovedAt  *time.Time    `json:"approved_at,omitempty"`
	RejectedAt  *time.Time    `json:"rejected_at,omitempty"`
	ExpiresAt   time.Time     `json:"expires_at"`
}

// Active reports whether the visit still counts against duplicate-submission
// checks: undecided or approved, and not yet past its expiry.
func (v *Visitor) Active(now time.Time) bool {
	if v.Status != VisitorPending && v.Status != VisitorApproved {
		return false
	}
	return v.ExpiresAt.After(now)
}

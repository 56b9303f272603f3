package domain

import "time"

type PasscodeStatus string

const (
	PasscodePending  PasscodeStatus = "pending"
	PasscodeApproved PasscodeStatus = "approved"
	PasscodeRejected PasscodeStatus = "rejected"
	PasscodeUsed     PasscodeStatus = "used"
	PasscodeExpired  PasscodeStatus = "expired"
)

func ParsePasscodeStatus(s string) (PasscodeStatus, bool) {
	switch PasscodeStatus(s) {
	case PasscodePending, PasscodeApproved, PasscodeRejected, PasscodeUsed, PasscodeExpired:
		return PasscodeStatus(s), true
	default:
		return "", false
	}
}

func (s PasscodeStatus) Terminal() bool {
	return s == PasscodeRejected || s == PasscodeUsed || s == PasscodeExpired
}

func (s PasscodeStatus) CanTransitionTo(target PasscodeStatus) bool {
	switch s {
	case PasscodePending:
		return target == PasscodeApproved || target == PasscodeRejected || target == PasscodeExpired
	case PasscodeApproved:
		return target == PasscodeUsed || target == PasscodeExpired
	default:
		return false
	}
}

// Passcode is a single-use numeric credential linked to one visitor. The code
// itself is the storage key. Phone is copied at issuance and matched on
// redemption. A passcode outlives neither its visitor nor its expiry.
type Passcode struct {
	Code      string         `json:"code"`
	FaceID    string         `json:"face_id"`
	Phone     string         `json:"phone"`
	Status    PasscodeStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
	UsedAt    *time.Time     `json:"used_at,omitempty"`
}

// Expired reports whether the code is past its validity window. Expiry is a
// read-time judgment: the stored status is never demoted in the background.
func (p *Passcode) Expired(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}

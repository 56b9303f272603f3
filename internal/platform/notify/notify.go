// Package notify delivers SMS and email to visitors and the owner.
// Delivery is fire-and-forget from the core's point of view: a failed
// dispatch is logged and never blocks or reverts a state transition.
package notify

import "context"

type Kind string

const (
	VisitorOTPSMS   Kind = "visitor-otp-sms"
	OwnerAlertEmail Kind = "owner-alert-email"
	OwnerAlertSMS   Kind = "owner-alert-sms"
	DecisionSMS     Kind = "decision-sms"
)

// Notification is one outbound message. HTML is set only for email kinds.
type Notification struct {
	Kind      Kind
	Recipient string
	Subject   string
	Body      string
	HTML      string
}

func (k Kind) Email() bool {
	return k == OwnerAlertEmail
}

type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

package notify

import (
	"fmt"
	"time"

	"github.com/smartdoor/doorman/internal/domain"
)

// Message builders. All notification content is assembled here so the
// services only decide when to notify, never how the text reads.

func VisitorOTP(phone, code string, ttl time.Duration) Notification {
	return Notification{
		Kind:      VisitorOTPSMS,
		Recipient: phone,
		Body: fmt.Sprintf(
			"Your Smart Door verification code is: %s\n\nValid for %d minutes.\nDo not share this code.",
			code, int(ttl.Minutes())),
	}
}

func OwnerAlert(ownerEmail string, v *domain.Visitor, photoURL, code, dashboardURL string) Notification {
	reason := v.VisitReason
	if reason == "" {
		reason = "Not specified"
	}
	email := v.Email
	if email == "" {
		email = "Not provided"
	}

	html := fmt.Sprintf(`
		<h2>New Visitor Awaiting Approval</h2>
		<ul>
			<li><strong>Name:</strong> %s</li>
			<li><strong>Phone:</strong> %s</li>
			<li><strong>Email:</strong> %s</li>
			<li><strong>Visit Reason:</strong> %s</li>
			<li><strong>Face ID:</strong> %s</li>
		</ul>
		<p><img src="%s" width="300" alt="Visitor photo"></p>
		<p>OTP code to share with the visitor: <strong style="font-size: 24px; letter-spacing: 3px;">%s</strong></p>
		<p><a href="%s" style="background-color: #10b981; color: white; padding: 12px 24px; text-decoration: none; border-radius: 8px;">Review &amp; Approve in Dashboard</a></p>
	`, v.Name, v.Phone, email, reason, v.FaceID, photoURL, code, dashboardURL)

	text := fmt.Sprintf(
		"New visitor awaiting approval\n\nName: %s\nPhone: %s\nFace ID: %s\nPhoto: %s\n\nReview here: %s",
		v.Name, v.Phone, v.FaceID, photoURL, dashboardURL)

	return Notification{
		Kind:      OwnerAlertEmail,
		Recipient: ownerEmail,
		Subject:   fmt.Sprintf("New Visitor: %s - Awaiting Approval", v.Name),
		Body:      text,
		HTML:      html,
	}
}

func OwnerDetectionEmail(ownerEmail, faceID, photoURL, dashboardURL string) Notification {
	html := fmt.Sprintf(`
		<h2>New Visitor Detected</h2>
		<p>A visitor has arrived at your door. Please review the photo and approve access.</p>
		<ul>
			<li><strong>Face ID:</strong> %s</li>
		</ul>
		<p><img src="%s" width="300" alt="Visitor photo"></p>
		<p><a href="%s" style="background-color: #667eea; color: white; padding: 12px 24px; text-decoration: none; border-radius: 8px;">Review &amp; Approve Visitor</a></p>
	`, faceID, photoURL, dashboardURL)

	text := fmt.Sprintf(
		"New visitor detected\n\nFace ID: %s\nPhoto: %s\n\nReview and approve here: %s",
		faceID, photoURL, dashboardURL)

	return Notification{
		Kind:      OwnerAlertEmail,
		Recipient: ownerEmail,
		Subject:   fmt.Sprintf("New Visitor Awaiting Approval [%s]", faceID),
		Body:      text,
		HTML:      html,
	}
}

func OwnerDetectionAlert(ownerPhone, faceID, photoURL, dashboardURL string) Notification {
	return Notification{
		Kind:      OwnerAlertSMS,
		Recipient: ownerPhone,
		Body: fmt.Sprintf(
			"New visitor at door!\nFace ID: %s\nPhoto: %s\nApprove: %s",
			faceID, photoURL, dashboardURL),
	}
}

func Decision(phone string, decision domain.VisitorStatus, code, entryURL string) Notification {
	var body string
	if decision == domain.VisitorApproved {
		body = fmt.Sprintf(
			"Your visit has been APPROVED!\n\nYour OTP is: %s\n\nEnter it at: %s\n\nValid for 10 minutes.",
			code, entryURL)
	} else {
		body = "Your visit request has been REJECTED.\n\nPlease contact the owner for more information."
	}
	return Notification{
		Kind:      DecisionSMS,
		Recipient: phone,
		Body:      body,
	}
}

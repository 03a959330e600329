// Package notify delivers email notifications for pass lifecycle events.
// Delivery is fire-and-forget: a failed send is logged and never fails the
// operation that triggered it.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"time"
)

// Message is a single outbound email.
type Message struct {
	To       mail.Address
	Subject  string
	TextBody string
	HTMLBody string
}

// Notifier sends a single message synchronously.
type Notifier interface {
	Send(ctx context.Context, msg *Message) error
}

// SendTimeout bounds how long a background delivery may take.
const SendTimeout = 10 * time.Second

// Dispatcher runs deliveries in the background so request handling never
// waits on an email provider.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
}

func NewDispatcher(notifier Notifier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{notifier: notifier, logger: logger}
}

// Dispatch queues the message for delivery and returns immediately.
func (d *Dispatcher) Dispatch(msg *Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), SendTimeout)
		defer cancel()
		if err := d.notifier.Send(ctx, msg); err != nil {
			d.logger.Error("notification delivery failed",
				"to", msg.To.Address,
				"subject", msg.Subject,
				"error", err,
			)
		}
	}()
}

// CheckedOut dispatches the guardian's departure notice.
func (d *Dispatcher) CheckedOut(guardianEmail, studentName string, at time.Time) {
	d.Dispatch(CheckedOut(guardianEmail, studentName, at))
}

// Returned dispatches the guardian's return notice.
func (d *Dispatcher) Returned(guardianEmail, studentName string, at time.Time, late bool) {
	d.Dispatch(Returned(guardianEmail, studentName, at, late))
}

// GuardianApprovalRequest dispatches the one-time approval link email.
func (d *Dispatcher) GuardianApprovalRequest(guardianEmail, studentName, baseURL, token string) {
	d.Dispatch(GuardianApprovalRequest(guardianEmail, studentName, baseURL, token))
}

// PassDecision dispatches the review outcome to the student.
func (d *Dispatcher) PassDecision(studentEmail string, approved bool, reason string) {
	d.Dispatch(PassDecision(studentEmail, approved, reason))
}

// GuardianApprovalRequest builds the email carrying a guardian's one-time
// approval link. The plaintext token appears only here; storage keeps its
// digest.
func GuardianApprovalRequest(guardianEmail, studentName, baseURL, token string) *Message {
	approveURL := fmt.Sprintf("%s/public/pass/%s/action?action=approve", baseURL, token)
	rejectURL := fmt.Sprintf("%s/public/pass/%s/action?action=reject", baseURL, token)
	return &Message{
		To:      mail.Address{Address: guardianEmail},
		Subject: fmt.Sprintf("Outpass request from %s", studentName),
		TextBody: fmt.Sprintf(
			"%s has requested a home pass.\n\nApprove: %s\nReject: %s\n\nThis link can be used once and expires.",
			studentName, approveURL, rejectURL,
		),
		HTMLBody: fmt.Sprintf(
			`<p>%s has requested a home pass.</p><p><a href=%q>Approve</a> | <a href=%q>Reject</a></p><p>This link can be used once and expires.</p>`,
			studentName, approveURL, rejectURL,
		),
	}
}

// PassDecision tells the student the outcome of a pass review.
func PassDecision(studentEmail string, approved bool, reason string) *Message {
	if approved {
		return &Message{
			To:       mail.Address{Address: studentEmail},
			Subject:  "Your outpass was approved",
			TextBody: "Your outpass has been approved. Show the QR code at the gate when leaving.",
			HTMLBody: "<p>Your outpass has been approved. Show the QR code at the gate when leaving.</p>",
		}
	}
	body := "Your outpass was rejected."
	if reason != "" {
		body = fmt.Sprintf("Your outpass was rejected: %s", reason)
	}
	return &Message{
		To:       mail.Address{Address: studentEmail},
		Subject:  "Your outpass was rejected",
		TextBody: body,
		HTMLBody: fmt.Sprintf("<p>%s</p>", body),
	}
}

// CheckedOut tells the guardian the student left campus.
func CheckedOut(guardianEmail, studentName string, at time.Time) *Message {
	body := fmt.Sprintf("%s checked out of the hostel at %s.", studentName, at.Format("15:04 on Jan 2"))
	return &Message{
		To:       mail.Address{Address: guardianEmail},
		Subject:  fmt.Sprintf("%s has left campus", studentName),
		TextBody: body,
		HTMLBody: fmt.Sprintf("<p>%s</p>", body),
	}
}

// Returned tells the guardian the student is back. The late variant also
// mentions the defaulter record opened on check-in.
func Returned(guardianEmail, studentName string, at time.Time, late bool) *Message {
	if late {
		body := fmt.Sprintf(
			"%s returned to the hostel at %s, after the pass deadline. A defaulter record has been created.",
			studentName, at.Format("15:04 on Jan 2"),
		)
		return &Message{
			To:       mail.Address{Address: guardianEmail},
			Subject:  fmt.Sprintf("%s returned late", studentName),
			TextBody: body,
			HTMLBody: fmt.Sprintf("<p>%s</p>", body),
		}
	}
	body := fmt.Sprintf("%s returned to the hostel at %s.", studentName, at.Format("15:04 on Jan 2"))
	return &Message{
		To:       mail.Address{Address: guardianEmail},
		Subject:  fmt.Sprintf("%s is back on campus", studentName),
		TextBody: body,
		HTMLBody: fmt.Sprintf("<p>%s</p>", body),
	}
}

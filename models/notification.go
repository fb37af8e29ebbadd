package models

// NotificationKind selects the message template sent to a recipient.
type NotificationKind string

const (
	NotifyRequestCreated       NotificationKind = "booking_request_created"
	NotifyRequestReceived      NotificationKind = "booking_request_received"
	NotifyRequestAccepted      NotificationKind = "booking_request_accepted"
	NotifyRequestRejected      NotificationKind = "booking_request_rejected"
	NotifyPaymentOverdue       NotificationKind = "advance_payment_overdue"
	NotifyBookingConfirmed     NotificationKind = "booking_confirmed"
	NotifyBookingCompleted     NotificationKind = "booking_completed"
	NotifyBookingCancelled     NotificationKind = "booking_cancelled"
	NotifyEventReminder        NotificationKind = "event_reminder"
	NotifyFinalPaymentReminder NotificationKind = "final_payment_reminder"
)

// RecipientRole tells the notifier which directory to resolve the recipient from.
type RecipientRole string

const (
	RoleUser   RecipientRole = "user"
	RoleVendor RecipientRole = "vendor"
)

// Recipient is the addressable party of a notification.
type Recipient struct {
	ID    string        `json:"id"`
	Role  RecipientRole `json:"role"`
	Name  string        `json:"name,omitempty"`
	Email string        `json:"email,omitempty"`
}

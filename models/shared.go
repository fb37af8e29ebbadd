package models

import "time"

// ReminderPayload is the body of a delayed reminder task.
type ReminderPayload struct {
	ReminderID string            `json:"reminderId"`
	BookingID  string            `json:"bookingId"`
	Kind       NotificationKind  `json:"kind"`
	Recipients []Recipient       `json:"recipients"`
	Data       map[string]string `json:"data"`
	FireAt     time.Time         `json:"fireAt"`
}

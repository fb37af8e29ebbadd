package booking

import "time"

// Policy holds every threshold the booking lifecycle depends on.
type Policy struct {
	// AdvanceRatio is the share of the total collected up front.
	AdvanceRatio float64

	// AdvanceDueDays is the normal window to pay the advance after acceptance.
	AdvanceDueDays int
	// AdvanceDueDaysUrgent applies when the normal window would leave less than
	// MinBufferBeforeEventDays between the due date and the event.
	AdvanceDueDaysUrgent     int
	MinBufferBeforeEventDays int

	// FinalPaymentGraceDays is added to the event end date.
	FinalPaymentGraceDays int

	// MinLeadTimeDays is the minimum distance between acceptance and the event.
	MinLeadTimeDays int

	// Refund tiers, as elapsed percentage of the payment-to-event window.
	EarlyCancellationMaxPct   float64
	EarlyCancellationRefund   int
	PartialCancellationMaxPct float64
	PartialCancellationRefund int

	// Reminder offsets relative to the event date and the final due date.
	EventReminderLead        time.Duration
	FinalPaymentReminderLead time.Duration

	// GatewayTimeout bounds every call to the payment gateway.
	GatewayTimeout time.Duration
	// NotifyTimeout bounds a single notification attempt.
	NotifyTimeout time.Duration
	// LockTTL is how long a per-booking lock is held at most.
	LockTTL time.Duration
}

// DefaultPolicy returns the marketplace defaults.
func DefaultPolicy() Policy {
	return Policy{
		AdvanceRatio:              0.30,
		AdvanceDueDays:            3,
		AdvanceDueDaysUrgent:      1,
		MinBufferBeforeEventDays:  7,
		FinalPaymentGraceDays:     7,
		MinLeadTimeDays:           5,
		EarlyCancellationMaxPct:   10,
		EarlyCancellationRefund:   95,
		PartialCancellationMaxPct: 60,
		PartialCancellationRefund: 70,
		EventReminderLead:         24 * time.Hour,
		FinalPaymentReminderLead:  48 * time.Hour,
		GatewayTimeout:            15 * time.Second,
		NotifyTimeout:             5 * time.Second,
		LockTTL:                   30 * time.Second,
	}
}

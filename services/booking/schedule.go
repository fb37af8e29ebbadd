package booking

import (
	"math"
	"time"
)

// PaymentSplit is the advance/final division of a total price.
type PaymentSplit struct {
	AdvanceAmount int64
	FinalAmount   int64
}

// SplitPayment rounds the advance and derives the final as the remainder,
// so the two always add up to the total.
func (p Policy) SplitPayment(totalPrice int64) PaymentSplit {
	advance := int64(math.Round(float64(totalPrice) * p.AdvanceRatio))
	return PaymentSplit{AdvanceAmount: advance, FinalAmount: totalPrice - advance}
}

// DueDates is the payment calendar of an accepted request. All values are
// midnight UTC.
type DueDates struct {
	EventDate         time.Time
	EventEndDate      time.Time
	AdvancePaymentDue time.Time
	FinalPaymentDue   time.Time
}

// ComputeDueDates derives the advance and final deadlines. The advance is due
// AdvanceDueDays after now unless that would leave less than
// MinBufferBeforeEventDays before the event, in which case the urgent window
// applies.
func (p Policy) ComputeDueDates(startingDate time.Time, numberOfDays int, now time.Time) DueDates {
	event := NormalizeDate(startingDate)
	today := NormalizeDate(now)

	eventEnd := event.AddDate(0, 0, numberOfDays)
	advanceDue := today.AddDate(0, 0, p.AdvanceDueDays)
	if daysBetween(advanceDue, event) < p.MinBufferBeforeEventDays {
		advanceDue = today.AddDate(0, 0, p.AdvanceDueDaysUrgent)
	}

	return DueDates{
		EventDate:         event,
		EventEndDate:      eventEnd,
		AdvancePaymentDue: advanceDue,
		FinalPaymentDue:   eventEnd.AddDate(0, 0, p.FinalPaymentGraceDays),
	}
}

// SplitPayment and ComputeDueDates under the default policy.
func SplitPayment(totalPrice int64) PaymentSplit {
	return DefaultPolicy().SplitPayment(totalPrice)
}

func ComputeDueDates(startingDate time.Time, numberOfDays int, now time.Time) DueDates {
	return DefaultPolicy().ComputeDueDates(startingDate, numberOfDays, now)
}

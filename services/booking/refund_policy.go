package booking

import "time"

const (
	ReasonEventOccurred   = "event already occurred"
	ReasonEarly           = "early cancellation"
	ReasonPartialRefund   = "partial refund period"
	ReasonTooCloseToEvent = "too close to event"
)

// RefundDecision is the outcome of the cancellation refund policy.
type RefundDecision struct {
	Eligible        bool
	UserRefundPct   int
	VendorFeePct    int
	Reason          string
	ElapsedPct      float64
	RemainingDays   int
	TotalWindowDays int
}

// RefundTier maps an elapsed percentage to its refund split. It is the
// decision table without the window guards.
func (p Policy) RefundTier(elapsedPct float64) RefundDecision {
	switch {
	case elapsedPct <= p.EarlyCancellationMaxPct:
		return RefundDecision{
			Eligible:      true,
			UserRefundPct: p.EarlyCancellationRefund,
			VendorFeePct:  100 - p.EarlyCancellationRefund,
			Reason:        ReasonEarly,
			ElapsedPct:    elapsedPct,
		}
	case elapsedPct <= p.PartialCancellationMaxPct:
		return RefundDecision{
			Eligible:      true,
			UserRefundPct: p.PartialCancellationRefund,
			VendorFeePct:  100 - p.PartialCancellationRefund,
			Reason:        ReasonPartialRefund,
			ElapsedPct:    elapsedPct,
		}
	default:
		return RefundDecision{Reason: ReasonTooCloseToEvent, ElapsedPct: elapsedPct}
	}
}

// EvaluateRefund applies the cancellation policy for an advance paid at paidAt
// for an event on eventDate, cancelled at now.
//
// A window of zero or fewer days (paid on the event day) is never eligible.
// If now precedes paidAt the elapsed share is clamped to 0.
func (p Policy) EvaluateRefund(paidAt, eventDate, now time.Time) RefundDecision {
	totalWindow := daysBetween(paidAt, eventDate)
	remaining := daysBetween(now, eventDate)

	if remaining < 0 {
		return RefundDecision{Reason: ReasonEventOccurred, RemainingDays: remaining, TotalWindowDays: totalWindow}
	}
	if totalWindow <= 0 {
		return RefundDecision{Reason: ReasonTooCloseToEvent, RemainingDays: remaining, TotalWindowDays: totalWindow}
	}

	elapsed := float64(totalWindow-remaining) / float64(totalWindow) * 100
	if elapsed < 0 {
		elapsed = 0
	}

	d := p.RefundTier(elapsed)
	d.RemainingDays = remaining
	d.TotalWindowDays = totalWindow
	return d
}

// EvaluateRefund under the default policy.
func EvaluateRefund(paidAt, eventDate, now time.Time) RefundDecision {
	return DefaultPolicy().EvaluateRefund(paidAt, eventDate, now)
}

package notification

import (
	"fmt"

	"lenslink/models"
)

// Message is the rendered, human readable part of a notification.
type Message struct {
	Title        string
	Body         string
	HighPriority bool
}

// Render builds the title and body for kind. Missing data keys render empty.
func Render(kind models.NotificationKind, to models.Recipient, data map[string]string) Message {
	d := func(k string) string { return data[k] }

	switch kind {
	case models.NotifyRequestCreated:
		return Message{
			Title: "Booking request sent",
			Body: fmt.Sprintf("Your request %s for %s day(s) from %s has been sent to the vendor.",
				d("requestId"), d("numberOfDays"), d("startingDate")),
		}
	case models.NotifyRequestReceived:
		return Message{
			Title: "New booking request",
			Body: fmt.Sprintf("You have a new request %s starting %s for %s day(s), total %s.",
				d("requestId"), d("startingDate"), d("numberOfDays"), d("totalPrice")),
			HighPriority: true,
		}
	case models.NotifyRequestAccepted:
		return Message{
			Title: "Booking request accepted",
			Body: fmt.Sprintf("%s accepted request %s. Pay the advance of %s by %s to confirm; %s is due by %s.",
				d("vendorDisplayName"), d("requestId"), d("advanceAmount"), d("advanceDueDate"),
				d("finalAmount"), d("finalDueDate")),
			HighPriority: true,
		}
	case models.NotifyRequestRejected:
		return Message{
			Title: "Booking request declined",
			Body:  fmt.Sprintf("Request %s was declined: %s", d("requestId"), d("rejectionReason")),
		}
	case models.NotifyPaymentOverdue:
		if to.Role == models.RoleVendor {
			return Message{
				Title: "Request expired",
				Body:  fmt.Sprintf("The advance for request %s was not paid by %s. The dates are free again.", d("requestId"), d("advanceDueDate")),
			}
		}
		return Message{
			Title: "Advance payment overdue",
			Body:  fmt.Sprintf("The advance for request %s was due on %s. The request has expired.", d("requestId"), d("advanceDueDate")),
		}
	case models.NotifyBookingConfirmed:
		return Message{
			Title: "Booking confirmed",
			Body: fmt.Sprintf("Booking %s on %s is confirmed. Advance paid: %s. Remaining %s due by %s.",
				d("bookingId"), d("startingDate"), d("advancePaid"), d("finalAmount"), d("finalDueDate")),
			HighPriority: true,
		}
	case models.NotifyBookingCompleted:
		return Message{
			Title: "Booking fully paid",
			Body:  fmt.Sprintf("Final payment of %s received for booking %s.", d("finalPaid"), d("bookingId")),
		}
	case models.NotifyBookingCancelled:
		if to.Role == models.RoleVendor {
			return Message{
				Title:        "Booking cancelled",
				Body:         fmt.Sprintf("Booking %s was cancelled. A fee of %s has been credited to your wallet.", d("bookingId"), d("vendorFee")),
				HighPriority: true,
			}
		}
		return Message{
			Title: "Booking cancelled",
			Body:  fmt.Sprintf("Booking %s was cancelled. %s will be refunded.", d("bookingId"), d("userRefund")),
		}
	case models.NotifyEventReminder:
		return Message{
			Title:        "Upcoming shoot",
			Body:         fmt.Sprintf("Reminder: your booking starts on %s at %s.", d("startingDate"), d("venue")),
			HighPriority: true,
		}
	case models.NotifyFinalPaymentReminder:
		return Message{
			Title:        "Final payment due soon",
			Body:         fmt.Sprintf("The remaining %s is due by %s.", d("finalAmount"), d("finalDueDate")),
			HighPriority: true,
		}
	default:
		return Message{Title: "LensLink", Body: string(kind)}
	}
}

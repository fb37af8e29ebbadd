package memory

import (
	"time"

	"lenslink/models"
)

func cloneWallet(w models.Wallet) models.Wallet {
	w.Transactions = append([]models.Transaction(nil), w.Transactions...)
	return w
}

func cloneUser(u models.User) models.User {
	u.Wallet = cloneWallet(u.Wallet)
	return u
}

func cloneVendor(v models.Vendor) models.Vendor {
	v.BookedDates = append([]string(nil), v.BookedDates...)
	v.Wallet = cloneWallet(v.Wallet)
	return v
}

func clonePackage(p models.Package) models.Package {
	p.Customizations = append([]models.Customization(nil), p.Customizations...)
	return p
}

func cloneRequest(r models.BookingRequest) models.BookingRequest {
	r.CustomizationIDs = append([]string(nil), r.CustomizationIDs...)
	r.RequestedDates = append([]string(nil), r.RequestedDates...)
	r.AdvancePaymentDueDate = cloneTime(r.AdvancePaymentDueDate)
	r.OverdueNotifiedAt = cloneTime(r.OverdueNotifiedAt)
	if r.AdvancePayment != nil {
		ap := *r.AdvancePayment
		ap.PaidAt = cloneTime(ap.PaidAt)
		r.AdvancePayment = &ap
	}
	if r.FinalPayment != nil {
		fp := *r.FinalPayment
		r.FinalPayment = &fp
	}
	return r
}

func cloneBooking(b models.Booking) models.Booking {
	b.CustomizationIDs = append([]string(nil), b.CustomizationIDs...)
	b.RequestedDates = append([]string(nil), b.RequestedDates...)
	b.AdvancePayment.RefundedAt = cloneTime(b.AdvancePayment.RefundedAt)
	b.FinalPayment.PaidAt = cloneTime(b.FinalPayment.PaidAt)
	b.CancelledAt = cloneTime(b.CancelledAt)
	if b.PendingCancellation != nil {
		pc := *b.PendingCancellation
		b.PendingCancellation = &pc
	}
	return b
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

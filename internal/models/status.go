package models

// TotalPaid sums the amounts of all payments recorded against a sale.
func TotalPaid(payments []Payment) int64 {
	var paid int64
	for _, p := range payments {
		paid += p.Amount
	}
	return paid
}

// DeriveStatus computes a sale's status purely from its payment history and
// total. It is recomputed from scratch after every payment append rather than
// patched incrementally. Cancellation freezes the status: once cancelled is
// true the payment rule is skipped.
func DeriveStatus(payments []Payment, total int64, cancelled bool) string {
	if cancelled {
		return SaleStatusCancelled
	}

	paid := TotalPaid(payments)
	switch {
	case paid >= total:
		return SaleStatusPaid
	case paid > 0:
		return SaleStatusPartiallyPaid
	default:
		return SaleStatusPending
	}
}

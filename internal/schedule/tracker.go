package schedule

// ApplyToggle returns the new aggregate paid amount after an installment of the given
// amount is marked complete (completing=true) or incomplete. The result is rounded to cents
// and never drops below zero.
func ApplyToggle(totalPaid, amount float64, completing bool) float64 {
	if completing {
		return cents(totalPaid, amount).InexactFloat64()
	}
	return owed(cents(totalPaid), cents(amount))
}

// CanComplete is the receipt gate: another installment may be completed only while
// fewer installments are complete than receipts have been uploaded.
func CanComplete(completed, receipts int64) bool {
	return completed < receipts
}

// CanRemoveReceipt reports whether one receipt can go without leaving more completed
// installments than receipts.
func CanRemoveReceipt(completed, receipts int64) bool {
	return receipts > 0 && completed <= receipts-1
}

// EffectiveAmount is the custom override when one is set, else the generated amount
func EffectiveAmount(original float64, custom *float64) float64 {
	if custom != nil {
		return *custom
	}
	return original
}

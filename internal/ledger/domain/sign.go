package domain

import "github.com/shopspring/decimal"

// Delta returns the signed contribution of one movement to a channel's
// running balance. RMB and HKD move in opposite directions for the same
// transaction: income collects RMB and pays out HKD, outcome the reverse.
//
//	RMB income  +amount    HKD income  -amount
//	RMB outcome -amount    HKD outcome +amount
func Delta(currency Currency, flow Flow, amount decimal.Decimal) decimal.Decimal {
	switch currency {
	case CurrencyRMB:
		if flow == FlowOutcome {
			return amount.Neg()
		}
		return amount
	case CurrencyHKD:
		if flow == FlowOutcome {
			return amount
		}
		return amount.Neg()
	}
	return decimal.Zero
}

// ValidateMovement rejects malformed movements before any lock is taken.
func ValidateMovement(currency Currency, flow Flow, amount decimal.Decimal) error {
	if currency != CurrencyRMB && currency != CurrencyHKD {
		return ErrInvalidCurrency
	}
	if flow != FlowIncome && flow != FlowOutcome {
		return ErrInvalidFlow
	}
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

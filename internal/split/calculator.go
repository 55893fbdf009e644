// Package split computes how much one payer owes under a chosen split
// mode.  It is a pure function of session state: no I/O, no persistence,
// all amounts in integer cents.
//
// Rounding is deliberately asymmetric.  Equal and percent amounts round
// up so the principal is never undercollected, which means the sum of
// all such payments may exceed the true remaining total by at most
// (diner count - 1) cents.  Items-mode amounts are exact sums.  Tips
// round to the nearest cent.
package split

import "errors"

// Mode selects the split algorithm.
type Mode int

const (
	// ModeItems pays for an explicitly selected set of orders.
	ModeItems Mode = iota
	// ModeEqual pays an even share of the unpaid total.
	ModeEqual
	// ModePercent pays a caller-chosen percentage of the unpaid total.
	ModePercent
)

// ParseMode maps a wire string onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "items":
		return ModeItems, nil
	case "equal":
		return ModeEqual, nil
	case "percent":
		return ModePercent, nil
	}
	return 0, ErrUnknownMode
}

// TipPercents is the fixed menu of selectable tip percentages.
var TipPercents = []int{0, 10, 15, 20}

var (
	// ErrUnknownMode is returned for a mode string outside items/equal/percent.
	ErrUnknownMode = errors.New("split: unknown mode")
	// ErrPercentOutOfRange is returned when a percent-mode percentage
	// falls outside [5,100].  The step-of-5 picker is a client concern;
	// the calculator accepts any percentage in range.
	ErrPercentOutOfRange = errors.New("split: percent must be in [5,100]")
	// ErrTipPercentInvalid is returned when the tip percentage is not one
	// of TipPercents.
	ErrTipPercentInvalid = errors.New("split: tip percent not offered")
)

// Order is one priced order line as the calculator sees it.
type Order struct {
	ID          string
	DinerID     string
	AmountCents int64
}

// Payment is one prior settlement's principal.  Tips are excluded: a
// tip never reduces anyone else's share.
type Payment struct {
	DinerID     string
	AmountCents int64
}

// State is the session snapshot the calculator operates on.
type State struct {
	Orders   []Order
	Payments []Payment
	DinerIDs []string
}

// Request is the tagged split-mode variant.  OrderIDs is meaningful
// only for ModeItems, Percent only for ModePercent.
type Request struct {
	Mode     Mode
	OrderIDs []string
	Percent  int
}

// GrandTotal is the worth of every order at current prices.
func GrandTotal(st State) int64 {
	var total int64
	for _, o := range st.Orders {
		total += o.AmountCents
	}
	return total
}

// UnpaidTotal is the grand total minus every payment's principal.
func UnpaidTotal(st State) int64 {
	total := GrandTotal(st)
	for _, p := range st.Payments {
		total -= p.AmountCents
	}
	return total
}

// outstandingDiners counts diners whose personal order total exceeds
// their personal paid total.
func outstandingDiners(st State) int {
	ordered := make(map[string]int64, len(st.DinerIDs))
	paid := make(map[string]int64, len(st.DinerIDs))
	for _, o := range st.Orders {
		ordered[o.DinerID] += o.AmountCents
	}
	for _, p := range st.Payments {
		paid[p.DinerID] += p.AmountCents
	}
	n := 0
	for _, id := range st.DinerIDs {
		if paid[id] < ordered[id] {
			n++
		}
	}
	return n
}

// Amount computes the payer's principal for the requested mode.
func Amount(st State, req Request) (int64, error) {
	switch req.Mode {
	case ModeItems:
		selected := make(map[string]bool, len(req.OrderIDs))
		for _, id := range req.OrderIDs {
			selected[id] = true
		}
		var sum int64
		for _, o := range st.Orders {
			if selected[o.ID] {
				sum += o.AmountCents
			}
		}
		return sum, nil
	case ModeEqual:
		divisor := outstandingDiners(st)
		if divisor == 0 {
			// Keeps the arithmetic defined when every diner is settled.
			// A late joiner's share can come out disproportionate here;
			// that mirrors the recorded product behavior.
			divisor = 1
		}
		return ceilDiv(UnpaidTotal(st), int64(divisor)), nil
	case ModePercent:
		if req.Percent < 5 || req.Percent > 100 {
			return 0, ErrPercentOutOfRange
		}
		return ceilDiv(UnpaidTotal(st)*int64(req.Percent), 100), nil
	}
	return 0, ErrUnknownMode
}

// Tip computes the additive tip for a principal, rounded to the nearest
// cent.  The tip is the payer's alone and is never split.
func Tip(amountCents int64, tipPct int) (int64, error) {
	offered := false
	for _, p := range TipPercents {
		if p == tipPct {
			offered = true
			break
		}
	}
	if !offered {
		return 0, ErrTipPercentInvalid
	}
	return (amountCents*int64(tipPct) + 50) / 100, nil
}

// ceilDiv rounds the quotient up; amounts here are never negative.
func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

package cost

import "fmt"

// Shortfall names the currency a payment failed on.
type Shortfall string

const (
	ShortBlood  Shortfall = "blood"
	ShortBones  Shortfall = "bones"
	ShortEnergy Shortfall = "energy"
	ShortMox    Shortfall = "mox"
)

// PaymentResult describes whether a cost can be paid.
// Excessive marks a blood payment that sacrifices more than needed.
type PaymentResult struct {
	Success   bool
	Excessive bool
	Short     Shortfall
	Reason    string
}

// Pool is the banked resources a side can spend.
type Pool struct {
	Bones  int
	Energy int
	Gems   Gem
}

// CheckBlood validates a sacrifice set against a blood cost.
// values holds the blood value of each offered sacrifice. The set must reach the cost
// and must not still reach it with any single sacrifice removed.
func CheckBlood(blood int, values []int) PaymentResult {
	if blood <= 0 {
		if len(values) > 0 {
			return PaymentResult{Excessive: true, Reason: "card has no blood cost"}
		}
		return PaymentResult{Success: true}
	}

	total := 0
	for _, v := range values {
		total += v
	}
	if total < blood {
		return PaymentResult{
			Short:  ShortBlood,
			Reason: fmt.Sprintf("sacrifices give %d blood, need %d", total, blood),
		}
	}
	for i, v := range values {
		if total-v >= blood {
			return PaymentResult{
				Excessive: true,
				Reason:    fmt.Sprintf("sacrifice %d is not needed to pay %d blood", i, blood),
			}
		}
	}
	return PaymentResult{Success: true}
}

// CalculatePayment checks the non-blood part of a cost against a pool.
func CalculatePayment(c Cost, pool Pool) PaymentResult {
	if pool.Bones < c.Bones {
		return PaymentResult{
			Short:  ShortBones,
			Reason: fmt.Sprintf("have %d bones, need %d", pool.Bones, c.Bones),
		}
	}
	if pool.Energy < c.Energy {
		return PaymentResult{
			Short:  ShortEnergy,
			Reason: fmt.Sprintf("have %d energy, need %d", pool.Energy, c.Energy),
		}
	}
	if !pool.Gems.Has(c.Mox) {
		return PaymentResult{
			Short:  ShortMox,
			Reason: fmt.Sprintf("missing %s mox", pool.Gems.Missing(c.Mox)),
		}
	}
	return PaymentResult{Success: true}
}

package entity

import "time"

// Loan is the stable logical view rules use for loan entities. Both schema
// versions implement it; rules obtain it by asserting the injected Adapter:
//
//	loan, ok := r.Entity().(entity.Loan)
//
// Optional fields return a second boolean that is false when the field is
// absent from the underlying data.
type Loan interface {
	Adapter

	ID() string
	Reference() string
	Facility() string
	Client() string
	Principal() float64
	Balance() float64
	Currency() string
	Rate() (float64, bool)
	RateType() (string, bool)
	Inception() (time.Time, bool)
	Maturity() (time.Time, bool)
	FirstPayment() (time.Time, bool)
	Status() string
	Purpose() (string, bool)
	Secured() bool
	PaymentFrequency() (string, bool)
	PaymentCount() (int, bool)

	// Repaid is the principal amount already repaid (principal - balance).
	Repaid() float64
	// RepaymentPct is Repaid as a percentage of principal, 0 when the
	// principal is not positive.
	RepaymentPct() float64
	// Overdue reports whether the maturity date has passed.
	Overdue() bool
}

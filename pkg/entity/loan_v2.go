package entity

import "time"

// LoanSchemaV2 is the schema identifier the v2 adapter serves.
const LoanSchemaV2 = "https://bank.example.com/schemas/loan/v2.0.0"

// loanV2 reads the v2.0.0 physical layout: the model was flattened and
// several fields renamed (loan_number became reference_number, the
// financial.* nesting was dropped). Logical accessor names are identical
// to v1, so rules work unchanged against either version.
type loanV2 struct {
	data Data
	rec  *Recorder
}

// NewLoanV2 builds the loan adapter for the v2.0.0 schema.
func NewLoanV2(data Data, rec *Recorder) Adapter {
	return &loanV2{data: data, rec: rec}
}

func (l *loanV2) EntityType() string   { return "loan" }
func (l *loanV2) ServesSchema() string { return LoanSchemaV2 }
func (l *loanV2) Raw() Data            { return l.data }
func (l *loanV2) Accesses() []Access   { return l.rec.Accesses() }

func (l *loanV2) str(logical, physical string) string {
	l.rec.Record(logical, physical)
	return l.data.String(physical, "")
}

func (l *loanV2) ID() string        { return l.str("id", "id") }
func (l *loanV2) Reference() string { return l.str("reference", "reference_number") }
func (l *loanV2) Facility() string  { return l.str("facility", "facility_ref") }
func (l *loanV2) Client() string    { return l.str("client", "client_ref") }
func (l *loanV2) Status() string    { return l.str("status", "status") }

func (l *loanV2) Principal() float64 {
	l.rec.Record("principal", "principal_amount")
	return l.data.Float("principal_amount", 0)
}

func (l *loanV2) Balance() float64 {
	l.rec.Record("balance", "outstanding_balance")
	return l.data.Float("outstanding_balance", 0)
}

func (l *loanV2) Currency() string {
	return l.str("currency", "currency")
}

func (l *loanV2) Rate() (float64, bool) {
	l.rec.Record("rate", "interest_rate")
	if _, ok := l.data.Lookup("interest_rate"); !ok {
		return 0, false
	}
	return l.data.Float("interest_rate", 0), true
}

func (l *loanV2) RateType() (string, bool) {
	l.rec.Record("rate_type", "interest_type")
	s := l.data.String("interest_type", "")
	return s, s != ""
}

func (l *loanV2) Inception() (time.Time, bool) {
	l.rec.Record("inception", "origination_date")
	return l.data.Date("origination_date")
}

func (l *loanV2) Maturity() (time.Time, bool) {
	l.rec.Record("maturity", "maturity_date")
	return l.data.Date("maturity_date")
}

func (l *loanV2) FirstPayment() (time.Time, bool) {
	l.rec.Record("first_payment", "first_payment_date")
	return l.data.Date("first_payment_date")
}

func (l *loanV2) Purpose() (string, bool) {
	l.rec.Record("purpose", "purpose")
	s := l.data.String("purpose", "")
	return s, s != ""
}

func (l *loanV2) Secured() bool {
	l.rec.Record("secured", "secured")
	return l.data.Bool("secured", false)
}

func (l *loanV2) PaymentFrequency() (string, bool) {
	l.rec.Record("payment_frequency", "payment_frequency")
	s := l.data.String("payment_frequency", "")
	return s, s != ""
}

func (l *loanV2) PaymentCount() (int, bool) {
	l.rec.Record("payment_count", "payment_count")
	return l.data.Int("payment_count")
}

func (l *loanV2) Repaid() float64 {
	l.rec.Record("repaid", "computed.utilization_amount")
	return l.Principal() - l.Balance()
}

func (l *loanV2) RepaymentPct() float64 {
	l.rec.Record("repayment_pct", "computed.utilization_percentage")
	if p := l.Principal(); p > 0 {
		return (l.Repaid() / p) * 100
	}
	return 0
}

func (l *loanV2) Overdue() bool {
	l.rec.Record("overdue", "computed.is_overdue")
	if m, ok := l.Maturity(); ok {
		return time.Now().After(m)
	}
	return false
}

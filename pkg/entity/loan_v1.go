package entity

import "time"

// LoanSchemaV1 is the schema identifier the v1 adapter serves.
const LoanSchemaV1 = "https://bank.example.com/schemas/loan/v1.0.0"

// loanV1 reads the v1.0.0 physical layout: identifiers at the top level
// under legacy names (loan_number), amounts nested under financial.*,
// dates under dates.*, and the repayment schedule under
// repayment_schedule.*.
type loanV1 struct {
	data Data
	rec  *Recorder
}

// NewLoanV1 builds the loan adapter for the v1.0.0 schema.
func NewLoanV1(data Data, rec *Recorder) Adapter {
	return &loanV1{data: data, rec: rec}
}

func (l *loanV1) EntityType() string   { return "loan" }
func (l *loanV1) ServesSchema() string { return LoanSchemaV1 }
func (l *loanV1) Raw() Data            { return l.data }
func (l *loanV1) Accesses() []Access   { return l.rec.Accesses() }

func (l *loanV1) str(logical, physical string) string {
	l.rec.Record(logical, physical)
	return l.data.String(physical, "")
}

func (l *loanV1) ID() string        { return l.str("id", "id") }
func (l *loanV1) Reference() string { return l.str("reference", "loan_number") }
func (l *loanV1) Facility() string  { return l.str("facility", "facility_id") }
func (l *loanV1) Client() string    { return l.str("client", "client_id") }
func (l *loanV1) Status() string    { return l.str("status", "status") }

func (l *loanV1) Principal() float64 {
	l.rec.Record("principal", "financial.principal_amount")
	return l.data.Float("financial.principal_amount", 0)
}

func (l *loanV1) Balance() float64 {
	l.rec.Record("balance", "financial.outstanding_balance")
	return l.data.Float("financial.outstanding_balance", 0)
}

func (l *loanV1) Currency() string {
	return l.str("currency", "financial.currency")
}

func (l *loanV1) Rate() (float64, bool) {
	l.rec.Record("rate", "financial.interest_rate")
	if _, ok := l.data.Lookup("financial.interest_rate"); !ok {
		return 0, false
	}
	return l.data.Float("financial.interest_rate", 0), true
}

func (l *loanV1) RateType() (string, bool) {
	l.rec.Record("rate_type", "financial.interest_type")
	s := l.data.String("financial.interest_type", "")
	return s, s != ""
}

func (l *loanV1) Inception() (time.Time, bool) {
	l.rec.Record("inception", "dates.origination_date")
	return l.data.Date("dates.origination_date")
}

func (l *loanV1) Maturity() (time.Time, bool) {
	l.rec.Record("maturity", "dates.maturity_date")
	return l.data.Date("dates.maturity_date")
}

func (l *loanV1) FirstPayment() (time.Time, bool) {
	l.rec.Record("first_payment", "dates.first_payment_date")
	return l.data.Date("dates.first_payment_date")
}

func (l *loanV1) Purpose() (string, bool) {
	l.rec.Record("purpose", "loan_type")
	s := l.data.String("loan_type", "")
	return s, s != ""
}

func (l *loanV1) Secured() bool {
	l.rec.Record("secured", "collateral_required")
	return l.data.Bool("collateral_required", false)
}

func (l *loanV1) PaymentFrequency() (string, bool) {
	l.rec.Record("payment_frequency", "repayment_schedule.frequency")
	s := l.data.String("repayment_schedule.frequency", "")
	return s, s != ""
}

func (l *loanV1) PaymentCount() (int, bool) {
	l.rec.Record("payment_count", "repayment_schedule.number_of_payments")
	return l.data.Int("repayment_schedule.number_of_payments")
}

func (l *loanV1) Repaid() float64 {
	l.rec.Record("repaid", "computed.utilization_amount")
	return l.Principal() - l.Balance()
}

func (l *loanV1) RepaymentPct() float64 {
	l.rec.Record("repayment_pct", "computed.utilization_percentage")
	if p := l.Principal(); p > 0 {
		return (l.Repaid() / p) * 100
	}
	return 0
}

func (l *loanV1) Overdue() bool {
	l.rec.Record("overdue", "computed.is_overdue")
	if m, ok := l.Maturity(); ok {
		return time.Now().After(m)
	}
	return false
}

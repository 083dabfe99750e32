package loanrules

import (
	"fmt"
	"strings"

	"github.com/judepayne/validlib/pkg/entity"
	"github.com/judepayne/validlib/pkg/result"
	"github.com/judepayne/validlib/pkg/rule"
)

// financialSoundness validates the loan's core financial parameters:
// positive principal, non-negative rate, maturity after inception, and
// balance not exceeding principal. All violations are collected into one
// message rather than stopping at the first.
type financialSoundness struct {
	rule.Base
}

// NewFinancialSoundness is the factory for the financial soundness rule.
func NewFinancialSoundness(id string) rule.Rule {
	return &financialSoundness{Base: rule.NewBase(id)}
}

func (r *financialSoundness) AppliesTo() string      { return "loan" }
func (r *financialSoundness) RequiredData() []string { return nil }

func (r *financialSoundness) Describe() string {
	return "Loan must have positive principal, valid dates, and non-negative interest rate"
}

func (r *financialSoundness) Run() (result.Status, string) {
	loan, ok := r.Entity().(entity.Loan)
	if !ok {
		return result.StatusError, "entity does not provide the loan view"
	}

	var errs []string

	principal := loan.Principal()
	if principal <= 0 {
		errs = append(errs, fmt.Sprintf("Principal amount must be positive, got %v", principal))
	}

	// The rate is optional in some schema versions; absent is fine.
	if rate, present := loan.Rate(); present && rate < 0 {
		errs = append(errs, fmt.Sprintf("Interest rate cannot be negative, got %v", rate))
	}

	inception, haveInception := loan.Inception()
	maturity, haveMaturity := loan.Maturity()
	switch {
	case !haveInception || !haveMaturity:
		errs = append(errs, "Missing required date fields (inception or maturity)")
	case !maturity.After(inception):
		errs = append(errs, fmt.Sprintf("Maturity date (%s) must be after inception date (%s)",
			maturity.Format("2006-01-02"), inception.Format("2006-01-02")))
	}

	if balance := loan.Balance(); balance != 0 && balance > principal {
		errs = append(errs, fmt.Sprintf("Outstanding balance (%v) exceeds original principal (%v)",
			balance, principal))
	}

	if len(errs) > 0 {
		return result.StatusFail, strings.Join(errs, "; ")
	}
	return result.StatusPass, ""
}

package loanrules

import (
	"fmt"

	"github.com/judepayne/validlib/pkg/entity"
	"github.com/judepayne/validlib/pkg/result"
	"github.com/judepayne/validlib/pkg/rule"
)

// balanceConstraints validates the outstanding balance against the loan
// status: never above principal, exactly zero when paid off, and never
// zero while active.
type balanceConstraints struct {
	rule.Base
}

// NewBalanceConstraints is the factory for the balance constraints rule.
func NewBalanceConstraints(id string) rule.Rule {
	return &balanceConstraints{Base: rule.NewBase(id)}
}

func (r *balanceConstraints) AppliesTo() string      { return "loan" }
func (r *balanceConstraints) RequiredData() []string { return nil }

func (r *balanceConstraints) Describe() string {
	return "Outstanding balance must not exceed principal; paid_off loans must have zero balance"
}

func (r *balanceConstraints) Run() (result.Status, string) {
	loan, ok := r.Entity().(entity.Loan)
	if !ok {
		return result.StatusError, "entity does not provide the loan view"
	}

	status := loan.Status()
	principal := loan.Principal()
	balance := loan.Balance()

	if balance > principal {
		return result.StatusFail, fmt.Sprintf("Outstanding balance (%v) exceeds principal amount (%v)",
			balance, principal)
	}
	if status == "paid_off" && balance != 0 {
		return result.StatusFail, fmt.Sprintf("Paid-off loan must have zero balance, got %v", balance)
	}
	if status == "active" && balance == 0 {
		return result.StatusFail, "Active loan cannot have zero outstanding balance"
	}
	return result.StatusPass, ""
}

package loanrules

import (
	"fmt"
	"strings"

	"github.com/judepayne/validlib/pkg/entity"
	"github.com/judepayne/validlib/pkg/result"
	"github.com/judepayne/validlib/pkg/rule"
)

var validStatuses = []string{"active", "paid_off", "defaulted", "written_off"}

// statusValidity validates that the loan status is present and one of
// the recognized lifecycle values.
type statusValidity struct {
	rule.Base
}

// NewStatusValidity is the factory for the status validity rule.
func NewStatusValidity(id string) rule.Rule {
	return &statusValidity{Base: rule.NewBase(id)}
}

func (r *statusValidity) AppliesTo() string      { return "loan" }
func (r *statusValidity) RequiredData() []string { return nil }

func (r *statusValidity) Describe() string {
	return "Loan status must be one of: " + strings.Join(validStatuses, ", ")
}

func (r *statusValidity) Run() (result.Status, string) {
	loan, ok := r.Entity().(entity.Loan)
	if !ok {
		return result.StatusError, "entity does not provide the loan view"
	}

	status := loan.Status()
	if status == "" {
		return result.StatusFail, "Loan status is missing"
	}
	for _, valid := range validStatuses {
		if status == valid {
			return result.StatusPass, ""
		}
	}
	return result.StatusFail, fmt.Sprintf("Invalid loan status '%s'. Must be one of: %s",
		status, strings.Join(validStatuses, ", "))
}

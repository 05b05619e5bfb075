package types

import (
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/samber/lo"
)

// ContractStatus represents the lifecycle state of a contract
type ContractStatus string

const (
	// ContractStatusDraft indicates the contract is being set up and is not billable yet
	ContractStatusDraft ContractStatus = "DRAFT"
	// ContractStatusActive indicates the contract is live and produces billing events
	ContractStatusActive ContractStatus = "ACTIVE"
	// ContractStatusPaused indicates billing is suspended but the contract remains in force
	ContractStatusPaused ContractStatus = "PAUSED"
	// ContractStatusCancelled indicates the contract was terminated before its natural end
	ContractStatusCancelled ContractStatus = "CANCELLED"
	// ContractStatusEnded indicates the contract ran to its end date
	ContractStatusEnded ContractStatus = "ENDED"
)

func (s ContractStatus) String() string {
	return string(s)
}

// IsBillable reports whether contracts in this state produce billing events.
// Cancelled and ended contracts still bill for periods before their end date.
func (s ContractStatus) IsBillable() bool {
	switch s {
	case ContractStatusActive, ContractStatusCancelled, ContractStatusEnded:
		return true
	default:
		return false
	}
}

func (s ContractStatus) Validate() error {
	allowed := []ContractStatus{
		ContractStatusDraft,
		ContractStatusActive,
		ContractStatusPaused,
		ContractStatusCancelled,
		ContractStatusEnded,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid contract status").
			WithHint("Please provide a valid contract status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

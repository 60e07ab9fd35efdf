package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type contractAgent struct {
	id       AgentID
	contract Contract
}

func (a contractAgent) ID() AgentID { return a.id }
func (a contractAgent) Run(_ context.Context, s WorkflowState) (WorkflowState, error) {
	return s, nil
}
func (a contractAgent) Contract() Contract { return a.contract }

func TestValidateRoster_OK(t *testing.T) {
	err := ValidateRoster(
		contractAgent{id: AgentCoder, contract: Contract{Writes: []string{SlotFiles, SlotProposedChanges, SlotMessages}}},
		contractAgent{id: AgentReviewer, contract: Contract{Writes: []string{SlotCodeIssues, SlotReviewNotes, SlotMessages}}},
	)
	assert.NoError(t, err)
}

func TestValidateRoster_DuplicateID(t *testing.T) {
	err := ValidateRoster(
		contractAgent{id: AgentCoder},
		contractAgent{id: AgentCoder},
	)
	assert.ErrorContains(t, err, "duplicate agent id")
}

func TestValidateRoster_ExclusiveSlotCollision(t *testing.T) {
	err := ValidateRoster(
		contractAgent{id: AgentReviewer, contract: Contract{Writes: []string{SlotCodeIssues}}},
		contractAgent{id: AgentSecurity, contract: Contract{Writes: []string{SlotCodeIssues}}},
	)
	assert.ErrorContains(t, err, `slot "code_issues"`)
}

func TestValidateRoster_SharedSlotsAllowed(t *testing.T) {
	err := ValidateRoster(
		contractAgent{id: AgentCoder, contract: Contract{Writes: []string{SlotFiles, SlotMessages}}},
		contractAgent{id: AgentRefactorer, contract: Contract{Writes: []string{SlotFiles, SlotMessages}}},
	)
	assert.NoError(t, err)
}

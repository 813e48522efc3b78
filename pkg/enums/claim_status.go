package enums

import "slices"

// ClaimStatus tracks an insurance claim through review.
type ClaimStatus string

const (
	ClaimStatusSubmitted          ClaimStatus = "SUBMITTED"
	ClaimStatusUnderInvestigation ClaimStatus = "UNDER_INVESTIGATION"
	ClaimStatusBeingAssessed      ClaimStatus = "BEING_ASSESSED"
	ClaimStatusApproved           ClaimStatus = "APPROVED"
	ClaimStatusRejected           ClaimStatus = "REJECTED"
)

var validClaimStatuses = []ClaimStatus{
	ClaimStatusSubmitted,
	ClaimStatusUnderInvestigation,
	ClaimStatusBeingAssessed,
	ClaimStatusApproved,
	ClaimStatusRejected,
}

// claimTransitions is the complete set of allowed moves. Anything absent is rejected.
var claimTransitions = map[ClaimStatus][]ClaimStatus{
	ClaimStatusSubmitted:          {ClaimStatusUnderInvestigation, ClaimStatusRejected},
	ClaimStatusUnderInvestigation: {ClaimStatusBeingAssessed, ClaimStatusRejected},
	ClaimStatusBeingAssessed:      {ClaimStatusUnderInvestigation, ClaimStatusApproved, ClaimStatusRejected},
	ClaimStatusApproved:           nil,
	ClaimStatusRejected:           nil,
}

// String implements fmt.Stringer.
func (s ClaimStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ClaimStatus.
func (s ClaimStatus) IsValid() bool {
	return slices.Contains(validClaimStatuses, s)
}

// IsTerminal reports whether no further transition is possible.
func (s ClaimStatus) IsTerminal() bool {
	return s.IsValid() && len(claimTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s ClaimStatus) CanTransitionTo(next ClaimStatus) bool {
	for _, allowed := range claimTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SourcesFor returns every status that may move into target.
func SourcesFor(target ClaimStatus) []ClaimStatus {
	var out []ClaimStatus
	for _, from := range validClaimStatuses {
		if from.CanTransitionTo(target) {
			out = append(out, from)
		}
	}
	return out
}

// ParseClaimStatus converts raw input into a ClaimStatus.
func ParseClaimStatus(value string) (ClaimStatus, error) {
	return parse("claim status", value, validClaimStatuses)
}

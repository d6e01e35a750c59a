package statesync

import "fmt"

// PartialFailureError is the aggregate outcome of a sync batch in which at
// least one reading failed. Individual failures are logged, not collected.
type PartialFailureError struct {
	Failed int
	Total  int
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%d of %d readings failed to sync", e.Failed, e.Total)
}

// VerificationError means the sentinel entity was not observable after a
// sync batch, regardless of whether the remediation registration worked.
type VerificationError struct {
	EntityID string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("sentinel entity %s not visible after sync", e.EntityID)
}

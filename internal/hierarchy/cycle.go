package hierarchy

import "context"

// ReportingGraph is the read interface the cycle detector walks. Callers
// must present a consistent snapshot (one transaction) while the
// organization is under concurrent edit; the detector cannot guarantee
// isolation on its own.
type ReportingGraph interface {
	ReportingTo(ctx context.Context, memberID int64) (*int64, error)
}

// DetectCycle checks whether pointing memberID at proposedSupervisorID
// would create a cycle in the reporting forest. It walks the reports-to
// chain upward from the proposed supervisor; reaching memberID, or
// re-visiting any node, invalidates the change. The visited set bounds the
// walk even over a pre-existing cycle.
func DetectCycle(ctx context.Context, graph ReportingGraph, memberID int64, proposedSupervisorID *int64) (ValidationResult, error) {
	result := NewValidationResult()

	if proposedSupervisorID == nil {
		// Removing a reporting edge cannot create a cycle.
		return result, nil
	}

	if *proposedSupervisorID == memberID {
		result.AddError("devotee cannot report to themselves")
		return result, nil
	}

	visited := make(map[int64]struct{})
	current := proposedSupervisorID

	for current != nil {
		if _, seen := visited[*current]; seen {
			result.AddError("circular reference detected in existing reporting chain")
			return result, nil
		}
		visited[*current] = struct{}{}

		if *current == memberID {
			result.AddError("circular reference detected: new supervisor is already reporting to this devotee")
			return result, nil
		}

		next, err := graph.ReportingTo(ctx, *current)
		if err != nil {
			return result, err
		}
		current = next
	}

	return result, nil
}

package hierarchy

// ValidateTransition decides whether a role change is legal under the
// policy table. Errors and warnings accumulate; nothing short-circuits, so
// the caller can report every violation at once.
func ValidateTransition(currentRole, targetRole *SenapotiRole, change ChangeType) ValidationResult {
	result := NewValidationResult()

	if change == ChangeRemove {
		if currentRole == nil {
			result.AddError("cannot remove role: devotee has no current role")
		}
		return result
	}

	if currentRole == nil && targetRole == nil {
		result.AddError("both current role and target role cannot be null")
		return result
	}

	if targetRole == nil {
		result.AddError("target role cannot be null for role assignment")
		return result
	}

	if _, ok := PolicyFor(*targetRole); !ok {
		result.AddError("invalid target role: %s", *targetRole)
		return result
	}

	if currentRole != nil {
		if _, ok := PolicyFor(*currentRole); !ok {
			result.AddError("invalid current role: %s", *currentRole)
			return result
		}
	}

	// Fresh assignment: no current role. Accepted with a warning so the
	// caller can surface that a new leader is being appointed.
	if currentRole == nil {
		result.AddWarning("assigning new role %s to devotee", *targetRole)
		return result
	}

	switch change {
	case ChangePromote:
		policy, _ := PolicyFor(*currentRole)
		if !containsRole(policy.CanPromoteTo, *targetRole) {
			result.AddError("cannot promote from %s to %s", *currentRole, *targetRole)
		}
	case ChangeDemote:
		policy, _ := PolicyFor(*currentRole)
		if !containsRole(policy.CanDemoteTo, *targetRole) {
			result.AddError("cannot demote from %s to %s", *currentRole, *targetRole)
		}
	case ChangeReplace:
		// Lateral reassignment is deliberately unrestricted across levels.
		// Existing data depends on this permissiveness.
	default:
		result.AddError("unknown change type: %s", change)
	}

	return result
}

// ValidTargetRoles lists the roles a member may move to for a given change
// type. REMOVE has no targets; a member without a role may take any.
func ValidTargetRoles(currentRole *SenapotiRole, change ChangeType) []SenapotiRole {
	if change == ChangeRemove {
		return nil
	}
	if currentRole == nil {
		return SenapotiRoles()
	}
	policy, ok := PolicyFor(*currentRole)
	if !ok {
		return nil
	}
	switch change {
	case ChangePromote:
		return policy.CanPromoteTo
	case ChangeDemote:
		return policy.CanDemoteTo
	case ChangeReplace:
		return SenapotiRoles()
	}
	return nil
}

// RequiresSubordinateTransfer reports whether a role change orphans direct
// reports and therefore must not commit until every subordinate has been
// re-pointed at a new supervisor.
func RequiresSubordinateTransfer(currentRole *SenapotiRole, change ChangeType) bool {
	if currentRole == nil {
		return false
	}
	policy, ok := PolicyFor(*currentRole)
	if !ok || len(policy.Manages) == 0 {
		return false
	}
	switch change {
	case ChangePromote, ChangeDemote, ChangeRemove, ChangeReplace:
		return true
	}
	return false
}

package hierarchy

import (
	"fmt"
	"strings"
)

// SenapotiRole is the closed set of leadership roles in the senapoti chain.
type SenapotiRole string

const (
	MalaSenapoti       SenapotiRole = "MALA_SENAPOTI"
	MahaChakraSenapoti SenapotiRole = "MAHA_CHAKRA_SENAPOTI"
	ChakraSenapoti     SenapotiRole = "CHAKRA_SENAPOTI"
	UpaChakraSenapoti  SenapotiRole = "UPA_CHAKRA_SENAPOTI"
)

// DistrictSupervisorRole is the supervisor of the top of the senapoti chain.
// It lives outside the chain itself and is never a valid target role.
const DistrictSupervisorRole = "DISTRICT_SUPERVISOR"

// SenapotiRoles lists the chain top-down.
func SenapotiRoles() []SenapotiRole {
	return []SenapotiRole{MalaSenapoti, MahaChakraSenapoti, ChakraSenapoti, UpaChakraSenapoti}
}

// ParseSenapotiRole validates a role string. Unknown strings are rejected,
// never coerced.
func ParseSenapotiRole(s string) (SenapotiRole, error) {
	role := SenapotiRole(strings.ToUpper(strings.TrimSpace(s)))
	switch role {
	case MalaSenapoti, MahaChakraSenapoti, ChakraSenapoti, UpaChakraSenapoti:
		return role, nil
	}
	return "", fmt.Errorf("hierarchy: unknown role %q", s)
}

// ChangeType enumerates the legal kinds of hierarchy transition.
type ChangeType string

const (
	ChangePromote ChangeType = "PROMOTE"
	ChangeDemote  ChangeType = "DEMOTE"
	ChangeRemove  ChangeType = "REMOVE"
	ChangeReplace ChangeType = "REPLACE"
)

// RoleChangeRequest is the transient input to transition validation. The
// request itself is never persisted; the resulting state change is.
type RoleChangeRequest struct {
	DevoteeID   int64
	CurrentRole *SenapotiRole
	TargetRole  *SenapotiRole
	ChangeType  ChangeType
	Reason      string
	ChangedBy   int64
}

// ValidationResult accumulates every violation so a caller can report them
// all in one pass. It is a value, never an error thrown across layers.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// NewValidationResult returns a passing result with empty slices.
func NewValidationResult() ValidationResult {
	return ValidationResult{IsValid: true, Errors: []string{}, Warnings: []string{}}
}

// AddError records a violation and marks the result invalid.
func (v *ValidationResult) AddError(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
	v.IsValid = false
}

// AddWarning records a non-fatal note.
func (v *ValidationResult) AddWarning(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

// Merge folds another result into this one.
func (v *ValidationResult) Merge(other ValidationResult) {
	v.Errors = append(v.Errors, other.Errors...)
	v.Warnings = append(v.Warnings, other.Warnings...)
	v.IsValid = v.IsValid && other.IsValid
}

// ValidationError wraps a failed ValidationResult for transport across the
// service boundary. Handlers unwrap it into the itemized 400 payload.
type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	return "hierarchy: validation failed: " + strings.Join(e.Result.Errors, "; ")
}

// Member is a devotee as seen by the hierarchy subsystem.
type Member struct {
	ID             int64         `json:"id"`
	Name           string        `json:"name"`
	LeadershipRole *SenapotiRole `json:"leadershipRole,omitempty"`
	ReportingTo    *int64        `json:"reportingToDevoteeId,omitempty"`
	NamhattaID     *int64        `json:"namhattaId,omitempty"`
}

// RoleChangeResult summarizes a committed hierarchy mutation.
type RoleChangeResult struct {
	DevoteeID               int64         `json:"devoteeId"`
	PreviousRole            *SenapotiRole `json:"previousRole,omitempty"`
	NewRole                 *SenapotiRole `json:"newRole,omitempty"`
	SubordinatesTransferred int           `json:"subordinatesTransferred"`
	Warnings                []string      `json:"warnings"`
}

// TransferResult summarizes a subordinate transfer.
type TransferResult struct {
	FromDevoteeID int64    `json:"fromDevoteeId"`
	ToDevoteeID   *int64   `json:"toDevoteeId,omitempty"`
	Transferred   int      `json:"transferred"`
	Warnings      []string `json:"warnings"`
}

package hierarchy

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/namhatta/namhatta/internal/shared"
)

// PromoteRequest asks to move a devotee up the chain. NewSupervisorID is
// the devotee's own new reporting edge; SubordinateTransferTo receives the
// devotee's direct reports when the old role managed anyone.
type PromoteRequest struct {
	DevoteeID             int64        `json:"devoteeId" validate:"required"`
	TargetRole            SenapotiRole `json:"targetRole" validate:"required"`
	NewSupervisorID       *int64       `json:"newSupervisorId"`
	SubordinateTransferTo *int64       `json:"subordinateTransferTo"`
	Reason                string       `json:"reason" validate:"required"`
}

// DemoteRequest mirrors PromoteRequest for downward moves.
type DemoteRequest struct {
	DevoteeID             int64        `json:"devoteeId" validate:"required"`
	TargetRole            SenapotiRole `json:"targetRole" validate:"required"`
	NewSupervisorID       *int64       `json:"newSupervisorId"`
	SubordinateTransferTo *int64       `json:"subordinateTransferTo"`
	Reason                string       `json:"reason" validate:"required"`
}

// RemoveRoleRequest strips a devotee's leadership role entirely.
type RemoveRoleRequest struct {
	DevoteeID             int64  `json:"devoteeId" validate:"required"`
	SubordinateTransferTo *int64 `json:"subordinateTransferTo"`
	Reason                string `json:"reason" validate:"required"`
}

// TransferRequest re-points every direct report of one supervisor.
type TransferRequest struct {
	FromDevoteeID int64  `json:"fromDevoteeId" validate:"required"`
	ToDevoteeID   *int64 `json:"toDevoteeId"`
	Reason        string `json:"reason" validate:"required"`
}

// Invalidator bumps dependent caches after a committed role change.
// Satisfied by dashboard.Service.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service validates and executes hierarchy transitions. All mutations run
// inside one repository transaction so the cycle detector walks a
// consistent snapshot of the reporting graph.
type Service struct {
	repo   RepositoryPort
	audit  *shared.AuditLogger
	logger *slog.Logger
	inval  Invalidator
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// WithInvalidator registers the cache to bump after role changes.
func (s *Service) WithInvalidator(inval Invalidator) *Service {
	s.inval = inval
	return s
}

// Promote moves a devotee to a higher role after full validation.
func (s *Service) Promote(ctx context.Context, req PromoteRequest, changedBy int64) (RoleChangeResult, error) {
	target := req.TargetRole
	return s.applyChange(ctx, RoleChangeRequest{
		DevoteeID:  req.DevoteeID,
		TargetRole: &target,
		ChangeType: ChangePromote,
		Reason:     req.Reason,
		ChangedBy:  changedBy,
	}, req.NewSupervisorID, req.SubordinateTransferTo)
}

// Demote moves a devotee to a lower role after full validation.
func (s *Service) Demote(ctx context.Context, req DemoteRequest, changedBy int64) (RoleChangeResult, error) {
	target := req.TargetRole
	return s.applyChange(ctx, RoleChangeRequest{
		DevoteeID:  req.DevoteeID,
		TargetRole: &target,
		ChangeType: ChangeDemote,
		Reason:     req.Reason,
		ChangedBy:  changedBy,
	}, req.NewSupervisorID, req.SubordinateTransferTo)
}

// RemoveRole strips the leadership role and clears the reporting edge.
func (s *Service) RemoveRole(ctx context.Context, req RemoveRoleRequest, changedBy int64) (RoleChangeResult, error) {
	return s.applyChange(ctx, RoleChangeRequest{
		DevoteeID:  req.DevoteeID,
		ChangeType: ChangeRemove,
		Reason:     req.Reason,
		ChangedBy:  changedBy,
	}, nil, req.SubordinateTransferTo)
}

// Replace performs a lateral reassignment to any role. Deliberately
// permissive across levels; see ValidateTransition.
func (s *Service) Replace(ctx context.Context, req PromoteRequest, changedBy int64) (RoleChangeResult, error) {
	target := req.TargetRole
	return s.applyChange(ctx, RoleChangeRequest{
		DevoteeID:  req.DevoteeID,
		TargetRole: &target,
		ChangeType: ChangeReplace,
		Reason:     req.Reason,
		ChangedBy:  changedBy,
	}, req.NewSupervisorID, req.SubordinateTransferTo)
}

func (s *Service) applyChange(ctx context.Context, req RoleChangeRequest, newSupervisorID, transferTo *int64) (RoleChangeResult, error) {
	var out RoleChangeResult
	err := s.repo.RunInTx(ctx, func(repo RepositoryPort) error {
		member, err := repo.GetMember(ctx, req.DevoteeID)
		if err != nil {
			return err
		}
		req.CurrentRole = member.LeadershipRole

		result := ValidateTransition(req.CurrentRole, req.TargetRole, req.ChangeType)

		transferred := int64(0)
		if RequiresSubordinateTransfer(req.CurrentRole, req.ChangeType) {
			subs, err := repo.DirectSubordinates(ctx, member.ID)
			if err != nil {
				return err
			}
			if len(subs) > 0 {
				transferValidation, err := validateTransfer(ctx, repo, subs, transferTo)
				if err != nil {
					return err
				}
				result.Merge(transferValidation)
				if result.IsValid {
					transferred, err = repo.ReassignSubordinates(ctx, member.ID, transferTo)
					if err != nil {
						return err
					}
					result.AddWarning("%d subordinate(s) transferred to new supervisor", transferred)
				}
			}
		}

		if result.IsValid && req.ChangeType != ChangeRemove {
			cycleCheck, err := DetectCycle(ctx, repo, member.ID, newSupervisorID)
			if err != nil {
				return err
			}
			result.Merge(cycleCheck)
		}

		if !result.IsValid {
			return &ValidationError{Result: result}
		}

		reportingTo := newSupervisorID
		if req.ChangeType == ChangeRemove {
			reportingTo = nil
		}
		if err := repo.UpdateLeadership(ctx, member.ID, req.TargetRole, reportingTo); err != nil {
			return err
		}
		if err := repo.RecordRoleChange(ctx, req, reportingTo); err != nil {
			return err
		}

		out = RoleChangeResult{
			DevoteeID:               member.ID,
			PreviousRole:            req.CurrentRole,
			NewRole:                 req.TargetRole,
			SubordinatesTransferred: int(transferred),
			Warnings:                result.Warnings,
		}
		return nil
	})
	if err != nil {
		return RoleChangeResult{}, err
	}

	if s.inval != nil {
		// Leader counts on the dashboard changed; a failed bump only
		// delays freshness.
		_ = s.inval.Invalidate(ctx)
	}
	s.recordAudit(ctx, req)
	return out, nil
}

// TransferSubordinates re-points every direct report of one supervisor,
// after cycle-checking each against the new supervisor.
func (s *Service) TransferSubordinates(ctx context.Context, req TransferRequest, changedBy int64) (TransferResult, error) {
	var out TransferResult
	err := s.repo.RunInTx(ctx, func(repo RepositoryPort) error {
		subs, err := repo.DirectSubordinates(ctx, req.FromDevoteeID)
		if err != nil {
			return err
		}
		if len(subs) == 0 {
			out = TransferResult{FromDevoteeID: req.FromDevoteeID, ToDevoteeID: req.ToDevoteeID, Warnings: []string{"no subordinates to transfer"}}
			return nil
		}

		result, err := validateTransfer(ctx, repo, subs, req.ToDevoteeID)
		if err != nil {
			return err
		}
		if !result.IsValid {
			return &ValidationError{Result: result}
		}

		transferred, err := repo.ReassignSubordinates(ctx, req.FromDevoteeID, req.ToDevoteeID)
		if err != nil {
			return err
		}
		out = TransferResult{
			FromDevoteeID: req.FromDevoteeID,
			ToDevoteeID:   req.ToDevoteeID,
			Transferred:   int(transferred),
			Warnings:      result.Warnings,
		}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  changedBy,
			Action:   "hierarchy.transfer",
			Entity:   "devotee",
			EntityID: strconv.FormatInt(req.FromDevoteeID, 10),
			Meta:     map[string]any{"to": req.ToDevoteeID, "reason": req.Reason},
		})
	}
	return out, nil
}

// validateTransfer checks that orphaned subordinates have a legal new home.
func validateTransfer(ctx context.Context, repo RepositoryPort, subs []Member, transferTo *int64) (ValidationResult, error) {
	result := NewValidationResult()

	if transferTo == nil {
		result.AddError("role change requires subordinate transfer: %d subordinate(s) need a new supervisor", len(subs))
		return result, nil
	}

	newSupervisor, err := repo.GetMember(ctx, *transferTo)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			result.AddError("new supervisor not found")
			return result, nil
		}
		return result, err
	}
	if newSupervisor.LeadershipRole == nil {
		result.AddError("new supervisor must have a leadership role")
		return result, nil
	}

	for _, sub := range subs {
		cycleCheck, err := DetectCycle(ctx, repo, sub.ID, transferTo)
		if err != nil {
			return result, err
		}
		if !cycleCheck.IsValid {
			result.AddError("circular reference detected for subordinate %s", sub.Name)
		}
	}
	return result, nil
}

// AuthorizeDistrict enforces district scoping for an operation on a
// devotee. Unrestricted constraints pass; a restricted caller must share
// at least one district with the devotee.
func (s *Service) AuthorizeDistrict(ctx context.Context, constraint shared.DistrictConstraint, devoteeID int64) error {
	if !constraint.Restricted {
		return nil
	}
	districts, err := s.repo.MemberDistricts(ctx, devoteeID)
	if err != nil {
		return err
	}
	for _, d := range districts {
		if constraint.Allows(d) {
			return nil
		}
	}
	return shared.ErrForbidden
}

// DirectSubordinates lists the members reporting directly to a devotee.
func (s *Service) DirectSubordinates(ctx context.Context, devoteeID int64) ([]Member, error) {
	return s.repo.DirectSubordinates(ctx, devoteeID)
}

// AllSubordinates walks the whole chain below a devotee, breadth-first.
// The visited set keeps the walk bounded even over corrupt graphs.
func (s *Service) AllSubordinates(ctx context.Context, devoteeID int64) ([]Member, error) {
	var all []Member
	visited := map[int64]struct{}{devoteeID: {}}
	queue := []int64{devoteeID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		subs, err := s.repo.DirectSubordinates(ctx, current)
		if err != nil {
			return nil, err
		}
		for _, sub := range subs {
			if _, seen := visited[sub.ID]; seen {
				continue
			}
			visited[sub.ID] = struct{}{}
			all = append(all, sub)
			queue = append(queue, sub.ID)
		}
	}
	return all, nil
}

// AvailableSupervisors lists district leaders holding the role a member of
// targetRole would report to. MALA_SENAPOTI reports to the district
// supervisor, which is not a devotee, so the list is empty for it.
func (s *Service) AvailableSupervisors(ctx context.Context, districtCode string, targetRole SenapotiRole, excludeIDs []int64) ([]Member, error) {
	expected := ExpectedSupervisorRole(targetRole)
	if expected == DistrictSupervisorRole {
		return []Member{}, nil
	}
	role, err := ParseSenapotiRole(expected)
	if err != nil {
		return nil, err
	}

	candidates, err := s.repo.MembersByDistrictAndRole(ctx, districtCode, &role)
	if err != nil {
		return nil, err
	}

	excluded := make(map[int64]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}
	available := make([]Member, 0, len(candidates))
	for _, c := range candidates {
		if _, skip := excluded[c.ID]; skip {
			continue
		}
		available = append(available, c)
	}
	return available, nil
}

func (s *Service) recordAudit(ctx context.Context, req RoleChangeRequest) {
	if s.audit == nil {
		return
	}
	meta := map[string]any{"change": string(req.ChangeType), "reason": req.Reason}
	if req.TargetRole != nil {
		meta["target"] = string(*req.TargetRole)
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  req.ChangedBy,
		Action:   "hierarchy.change",
		Entity:   "devotee",
		EntityID: strconv.FormatInt(req.DevoteeID, 10),
		Meta:     meta,
	}); err != nil && s.logger != nil {
		s.logger.Warn("record role change audit", slog.Any("error", err))
	}
}

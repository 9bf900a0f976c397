package namhattas

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/namhatta/namhatta/internal/platform/httpx"
	"github.com/namhatta/namhatta/internal/shared"
)

type stubRepo struct {
	namhattas map[int64]*Namhatta
	nextID    int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{namhattas: map[int64]*Namhatta{}, nextID: 1}
}

func (r *stubRepo) add(n Namhatta) int64 {
	id := r.nextID
	r.nextID++
	n.ID = id
	r.namhattas[id] = &n
	return id
}

func (r *stubRepo) List(ctx context.Context, filter ListFilter) (Page, error) {
	page := Page{Items: []Namhatta{}, Page: 1, PageSize: 20}
	for _, n := range r.namhattas {
		if filter.Status != "" && n.Status != filter.Status {
			continue
		}
		page.Items = append(page.Items, *n)
		page.Total++
	}
	return page, nil
}

func (r *stubRepo) Get(ctx context.Context, id int64) (*Namhatta, error) {
	n, ok := r.namhattas[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *n
	return &copied, nil
}

func (r *stubRepo) Create(ctx context.Context, n Namhatta) (int64, error) {
	for _, existing := range r.namhattas {
		if existing.Code == n.Code {
			return 0, httpx.ErrDuplicate
		}
	}
	n.Status = StatusPendingApproval
	return r.add(n), nil
}

func (r *stubRepo) SetStatus(ctx context.Context, id int64, status string, registrationNo *string) error {
	n, ok := r.namhattas[id]
	if !ok {
		return shared.ErrNotFound
	}
	n.Status = status
	if registrationNo != nil {
		n.RegistrationNo = registrationNo
	}
	return nil
}

func (r *stubRepo) RegistrationNoTaken(ctx context.Context, registrationNo string) (bool, error) {
	for _, n := range r.namhattas {
		if n.RegistrationNo != nil && *n.RegistrationNo == registrationNo {
			return true, nil
		}
	}
	return false, nil
}

var _ RepositoryPort = (*stubRepo)(nil)

func TestCreateStartsPending(t *testing.T) {
	svc := NewService(newStubRepo())

	n, err := svc.Create(context.Background(), Namhatta{Code: "NH-001", Name: "Mayapur Namhatta"})
	require.NoError(t, err)
	require.Equal(t, StatusPendingApproval, n.Status)
	require.Nil(t, n.RegistrationNo)
}

func TestCreateDuplicateCode(t *testing.T) {
	repo := newStubRepo()
	repo.add(Namhatta{Code: "NH-001", Name: "First", Status: StatusPendingApproval})
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), Namhatta{Code: "NH-001", Name: "Second"})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestApproveAssignsRegistrationNo(t *testing.T) {
	repo := newStubRepo()
	id := repo.add(Namhatta{Code: "NH-001", Name: "Mayapur", Status: StatusPendingApproval})
	svc := NewService(repo)

	n, err := svc.Approve(context.Background(), id, "REG-2026-001")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, n.Status)
	require.Equal(t, "REG-2026-001", *n.RegistrationNo)
}

func TestApproveRejectsNonPending(t *testing.T) {
	repo := newStubRepo()
	id := repo.add(Namhatta{Code: "NH-001", Name: "Mayapur", Status: StatusApproved})
	svc := NewService(repo)

	_, err := svc.Approve(context.Background(), id, "REG-2026-002")
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestApproveRejectsDuplicateRegistrationNo(t *testing.T) {
	repo := newStubRepo()
	reg := "REG-2026-001"
	repo.add(Namhatta{Code: "NH-001", Name: "First", Status: StatusApproved, RegistrationNo: &reg})
	id := repo.add(Namhatta{Code: "NH-002", Name: "Second", Status: StatusPendingApproval})
	svc := NewService(repo)

	_, err := svc.Approve(context.Background(), id, reg)
	require.ErrorIs(t, err, httpx.ErrDuplicate)
	require.Equal(t, StatusPendingApproval, repo.namhattas[id].Status)
}

func TestRejectPendingOnly(t *testing.T) {
	repo := newStubRepo()
	pendingID := repo.add(Namhatta{Code: "NH-001", Name: "Pending", Status: StatusPendingApproval})
	rejectedID := repo.add(Namhatta{Code: "NH-002", Name: "Done", Status: StatusRejected})
	svc := NewService(repo)

	n, err := svc.Reject(context.Background(), pendingID)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, n.Status)

	_, err = svc.Reject(context.Background(), rejectedID)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

type stubInvalidator struct {
	bumps int
}

func (i *stubInvalidator) Invalidate(ctx context.Context) error {
	i.bumps++
	return nil
}

func TestStatusChangesBumpDashboardCache(t *testing.T) {
	repo := newStubRepo()
	inval := &stubInvalidator{}
	svc := NewService(repo).WithInvalidator(inval)
	ctx := context.Background()

	n, err := svc.Create(ctx, Namhatta{Code: "NH-001", Name: "Mayapur"})
	require.NoError(t, err)
	require.Equal(t, 1, inval.bumps)

	_, err = svc.Approve(ctx, n.ID, "REG-2026-001")
	require.NoError(t, err)
	require.Equal(t, 2, inval.bumps)

	// A rejected approval must not bump.
	_, err = svc.Approve(ctx, n.ID, "REG-2026-002")
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Equal(t, 2, inval.bumps)

	pending, err := svc.Create(ctx, Namhatta{Code: "NH-002", Name: "Kolkata"})
	require.NoError(t, err)
	_, err = svc.Reject(ctx, pending.ID)
	require.NoError(t, err)
	require.Equal(t, 4, inval.bumps)
}

func TestGetEnforcesDistrictScope(t *testing.T) {
	repo := newStubRepo()
	code := "KOLKATA"
	id := repo.add(Namhatta{Code: "NH-001", Name: "Kolkata Center", Status: StatusApproved, DistrictCode: &code})
	svc := NewService(repo)

	restricted := shared.DistrictConstraint{Restricted: true, Codes: []string{"NADIA"}}
	_, err := svc.Get(context.Background(), restricted, id)
	require.ErrorIs(t, err, shared.ErrForbidden)

	n, err := svc.Get(context.Background(), shared.DistrictConstraint{}, id)
	require.NoError(t, err)
	require.Equal(t, "Kolkata Center", n.Name)
}

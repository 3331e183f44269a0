package employees

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-hr/meridian-hr/internal/shared"
)

type fakeRepo struct {
	byID      map[int64]Employee
	byToken   map[string]Employee
	activated map[int64]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		byID:      make(map[int64]Employee),
		byToken:   make(map[string]Employee),
		activated: make(map[int64]string),
	}
}

func (f *fakeRepo) GetByID(ctx context.Context, id int64) (Employee, error) {
	emp, ok := f.byID[id]
	if !ok {
		return Employee{}, shared.ErrNotFound
	}
	return emp, nil
}

func (f *fakeRepo) GetByEmail(ctx context.Context, email string) (Employee, error) {
	return Employee{}, shared.ErrNotFound
}

func (f *fakeRepo) GetBySetupToken(ctx context.Context, token string) (Employee, error) {
	emp, ok := f.byToken[token]
	if !ok {
		return Employee{}, shared.ErrNotFound
	}
	return emp, nil
}

func (f *fakeRepo) FirstActiveWithRole(ctx context.Context, role string) (Employee, error) {
	return Employee{}, shared.ErrNotFound
}

func (f *fakeRepo) List(ctx context.Context) ([]Employee, error) { return nil, nil }

func (f *fakeRepo) ChangeRole(ctx context.Context, id int64, role string) error { return nil }

func (f *fakeRepo) ChangeDivision(ctx context.Context, id int64, divisionID int64) error { return nil }

func (f *fakeRepo) Terminate(ctx context.Context, id int64, at time.Time) error { return nil }

func (f *fakeRepo) Invite(ctx context.Context, emp Employee) (int64, error) { return 1, nil }

func (f *fakeRepo) Reactivate(ctx context.Context, id int64, role string, divisionID *int64) error {
	return nil
}

func (f *fakeRepo) Activate(ctx context.Context, id int64, passwordHash string) error {
	f.activated[id] = passwordHash
	return nil
}

func (f *fakeRepo) ClearExpiredSetupTokens(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func timePtr(t time.Time) *time.Time { return &t }

func strPtr(s string) *string { return &s }

func TestCompleteSetup(t *testing.T) {
	repo := newFakeRepo()
	expiry := time.Now().Add(time.Hour)
	repo.byToken["good-token"] = Employee{
		ID: 11, Email: "new@x", Status: StatusInvited,
		SetupToken: strPtr("good-token"), SetupTokenExpiresAt: timePtr(expiry),
	}
	service := NewService(repo)

	emp, err := service.CompleteSetup(context.Background(), "good-token", "hunter2hunter2")
	require.NoError(t, err)
	require.Equal(t, StatusActive, emp.Status)
	require.Nil(t, emp.SetupToken)

	hash, ok := repo.activated[11]
	require.True(t, ok)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2hunter2")))
}

func TestCompleteSetupExpiredToken(t *testing.T) {
	repo := newFakeRepo()
	repo.byToken["stale"] = Employee{
		ID: 12, Status: StatusInvited,
		SetupToken:          strPtr("stale"),
		SetupTokenExpiresAt: timePtr(time.Now().Add(-time.Minute)),
	}
	service := NewService(repo)

	_, err := service.CompleteSetup(context.Background(), "stale", "hunter2hunter2")
	require.ErrorIs(t, err, ErrSetupTokenInvalid)
	require.Empty(t, repo.activated)
}

func TestCompleteSetupUnknownToken(t *testing.T) {
	service := NewService(newFakeRepo())
	_, err := service.CompleteSetup(context.Background(), "nope", "hunter2hunter2")
	require.ErrorIs(t, err, ErrSetupTokenInvalid)
}

func TestAccountProjection(t *testing.T) {
	repo := newFakeRepo()
	div := int64(3)
	repo.byID[5] = Employee{
		ID: 5, Name: "Morgan Tate", Email: "manager.eng@meridian.local",
		RoleName: "Manager", DivisionID: &div, Status: StatusActive,
	}
	repo.byID[6] = Employee{ID: 6, Status: StatusTerminated}
	service := NewService(repo)

	acct, err := service.Account(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, int64(5), acct.ID)
	require.Equal(t, "Manager", acct.RoleName)
	require.Equal(t, &div, acct.DivisionID)
	require.True(t, acct.Active)

	gone, err := service.Account(context.Background(), 6)
	require.NoError(t, err)
	require.False(t, gone.Active)

	_, err = service.Account(context.Background(), 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

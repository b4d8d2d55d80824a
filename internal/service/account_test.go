package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mmeshcher/coffeeshop-system/internal/model"
	"github.com/mmeshcher/coffeeshop-system/internal/repository"
	"github.com/mmeshcher/coffeeshop-system/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubAccountRepo struct {
	users     map[string]*model.User
	usernames map[string]bool
	created   *model.User
	activeSet map[int64]bool
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{
		users:     map[string]*model.User{},
		usernames: map[string]bool{},
		activeSet: map[int64]bool{},
	}
}

func (s *stubAccountRepo) CreateUser(_ context.Context, u *model.User) error {
	u.ID = int64(len(s.users) + 1)
	s.users[u.Email] = u
	s.usernames[u.Username] = true
	s.created = u
	return nil
}

func (s *stubAccountRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *stubAccountRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := s.users[email]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (s *stubAccountRepo) EmailTaken(_ context.Context, email string, _ int64) (bool, error) {
	_, ok := s.users[email]
	return ok, nil
}

func (s *stubAccountRepo) UsernameTaken(_ context.Context, username string, _ int64) (bool, error) {
	return s.usernames[username], nil
}

func (s *stubAccountRepo) ListCustomers(context.Context, *bool) ([]model.User, error) {
	return nil, nil
}

func (s *stubAccountRepo) PageCustomers(_ context.Context, _ *bool, page model.PageRequest) (model.Page[model.User], error) {
	return model.NewPage[model.User](nil, page, 0), nil
}

func (s *stubAccountRepo) SetUserActive(_ context.Context, id int64, active bool) error {
	s.activeSet[id] = active
	return nil
}

type stubTokens struct{}

func (stubTokens) IssueToken(u *model.User) (string, time.Time, error) {
	return "token-" + u.Email, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

func newTestAccountService(repo *stubAccountRepo) *AccountService {
	s := NewAccountService(repo, stubTokens{})
	s.hashCost = bcrypt.MinCost
	return s
}

func TestSignUp(t *testing.T) {
	repo := newStubAccountRepo()
	repo.usernames["anna"] = true
	svc := newTestAccountService(repo)

	res, err := svc.SignUp(context.Background(), SignUpInput{
		Name:     "Anna Maria Smith",
		Email:    "  Anna@Example.com ",
		Password: "secret123",
		Sex:      model.SexFemale,
	})
	require.NoError(t, err)

	assert.Equal(t, "token-anna@example.com", res.Token)
	u := repo.created
	require.NotNil(t, u)
	assert.Equal(t, "anna@example.com", u.Email)
	assert.Equal(t, "anna1", u.Username)
	assert.Equal(t, "Anna", u.FirstName)
	assert.Equal(t, "Maria Smith", u.LastName)
	assert.Equal(t, model.RoleClient, u.Role)
	assert.True(t, u.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword(u.PasswordHash, []byte("secret123")))
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	repo := newStubAccountRepo()
	repo.users["anna@example.com"] = &model.User{ID: 1, Email: "anna@example.com"}
	svc := newTestAccountService(repo)

	_, err := svc.SignUp(context.Background(), SignUpInput{Name: "Anna", Email: "ANNA@example.com", Password: "secret123"})
	if !errors.Is(err, repository.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestSignUp_PasswordTooLong(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newTestAccountService(repo)

	_, err := svc.SignUp(context.Background(), SignUpInput{
		Name:     "Anna",
		Email:    "anna@example.com",
		Password: strings.Repeat("p", 80),
	})
	var fields validation.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "password")
	assert.Nil(t, repo.created)
}

func TestUniqueUsername(t *testing.T) {
	repo := newStubAccountRepo()
	repo.usernames["anna"] = true
	for i := 1; i < maxUsernameAttempts; i++ {
		repo.usernames["anna"+strconv.Itoa(i)] = true
	}

	name, err := uniqueUsername(context.Background(), repo, "anna@example.com")
	require.NoError(t, err)
	assert.Equal(t, "anna"+strconv.Itoa(maxUsernameAttempts), name)

	repo.usernames[name] = true
	_, err = uniqueUsername(context.Background(), repo, "anna@example.com")
	if !errors.Is(err, repository.ErrUsernameExists) {
		t.Fatalf("expected ErrUsernameExists, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := newStubAccountRepo()
	repo.users["anna@example.com"] = &model.User{ID: 1, Email: "anna@example.com", PasswordHash: hash, IsActive: true}
	repo.users["bob@example.com"] = &model.User{ID: 2, Email: "bob@example.com", PasswordHash: hash}
	svc := newTestAccountService(repo)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "ok", email: "Anna@example.com", password: "secret123"},
		{name: "wrong password", email: "anna@example.com", password: "nope", wantErr: ErrInvalidCredentials},
		{name: "unknown email", email: "who@example.com", password: "secret123", wantErr: ErrInvalidCredentials},
		{name: "inactive", email: "bob@example.com", password: "secret123", wantErr: ErrAccountInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Login(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(1), res.User.ID)
		})
	}
}

func TestGetCustomer_RejectsStaff(t *testing.T) {
	repo := newStubAccountRepo()
	repo.users["boss@example.com"] = &model.User{ID: 5, Email: "boss@example.com", Role: model.RoleOwner}
	svc := newTestAccountService(repo)

	_, err := svc.GetCustomer(context.Background(), 5)
	if !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSetCustomerActive(t *testing.T) {
	repo := newStubAccountRepo()
	repo.users["anna@example.com"] = &model.User{ID: 3, Email: "anna@example.com", Role: model.RoleClient, IsActive: true}
	svc := newTestAccountService(repo)

	u, err := svc.SetCustomerActive(context.Background(), 3, false)
	require.NoError(t, err)
	assert.False(t, u.IsActive)
	assert.Equal(t, map[int64]bool{3: false}, repo.activeSet)
}

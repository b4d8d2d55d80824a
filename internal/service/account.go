package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmeshcher/coffeeshop-system/internal/model"
	"github.com/mmeshcher/coffeeshop-system/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// maxUsernameAttempts ограничивает перебор суффиксов при подборе логина.
const maxUsernameAttempts = 1000

// AccountRepository описывает доступ к учётным записям.
type AccountRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error)
	UsernameTaken(ctx context.Context, username string, exceptID int64) (bool, error)
	ListCustomers(ctx context.Context, active *bool) ([]model.User, error)
	PageCustomers(ctx context.Context, active *bool, page model.PageRequest) (model.Page[model.User], error)
	SetUserActive(ctx context.Context, id int64, active bool) error
}

// SignUpInput — данные регистрации клиента.
type SignUpInput struct {
	Name     string
	Email    string
	Password string
	Sex      model.Sex
	Phone    string
}

// AuthResult — результат регистрации или входа.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// AccountService управляет учётными записями клиентов и аутентификацией.
type AccountService struct {
	repo     AccountRepository
	tokens   TokenIssuer
	hashCost int
}

// NewAccountService создаёт сервис учётных записей.
func NewAccountService(repo AccountRepository, tokens TokenIssuer) *AccountService {
	return &AccountService{repo: repo, tokens: tokens, hashCost: bcrypt.DefaultCost}
}

// SignUp регистрирует клиента и сразу выдаёт ему токен.
func (s *AccountService) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)

	taken, err := s.repo.EmailTaken(ctx, email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, repository.ErrEmailExists
	}

	username, err := uniqueUsername(ctx, s.repo, email)
	if err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password, s.hashCost)
	if err != nil {
		return nil, err
	}

	first, last := model.SplitName(in.Name)
	u := &model.User{
		FirstName:    first,
		LastName:     last,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleClient,
		Sex:          in.Sex,
		PhoneNumber:  strings.TrimSpace(in.Phone),
		IsActive:     true,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	return s.issue(u)
}

// Login проверяет email и пароль. Неизвестный email и неверный пароль неразличимы для клиента.
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountInactive
	}

	return s.issue(u)
}

func (s *AccountService) issue(u *model.User) (*AuthResult, error) {
	token, expires, err := s.tokens.IssueToken(u)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: token, ExpiresAt: expires, User: u}, nil
}

// Profile возвращает учётную запись текущего пользователя.
func (s *AccountService) Profile(ctx context.Context, userID int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// ListCustomers возвращает клиентов, при заданном active только с этим флагом.
func (s *AccountService) ListCustomers(ctx context.Context, active *bool) ([]model.User, error) {
	return s.repo.ListCustomers(ctx, active)
}

// PageCustomers возвращает страницу клиентов.
func (s *AccountService) PageCustomers(ctx context.Context, active *bool, page model.PageRequest) (model.Page[model.User], error) {
	return s.repo.PageCustomers(ctx, active, page.Normalize())
}

// GetCustomer возвращает клиента по идентификатору. Учётные записи сотрудников не считаются клиентами.
func (s *AccountService) GetCustomer(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != model.RoleClient {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

// GetCustomerByEmail возвращает клиента по email.
func (s *AccountService) GetCustomerByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u.Role != model.RoleClient {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

// SetCustomerActive активирует или деактивирует клиента.
func (s *AccountService) SetCustomerActive(ctx context.Context, id int64, active bool) (*model.User, error) {
	u, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetUserActive(ctx, id, active); err != nil {
		return nil, err
	}
	u.IsActive = active
	return u, nil
}

type usernameChecker interface {
	UsernameTaken(ctx context.Context, username string, exceptID int64) (bool, error)
}

// uniqueUsername подбирает логин из локальной части email, добавляя 1, 2, ... до первого свободного.
func uniqueUsername(ctx context.Context, repo usernameChecker, email string) (string, error) {
	base := usernameBase(email)
	for i := 0; i <= maxUsernameAttempts; i++ {
		candidate := base
		if i > 0 {
			candidate += strconv.Itoa(i)
		}
		taken, err := repo.UsernameTaken(ctx, candidate, 0)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", repository.ErrUsernameExists
}

func usernameBase(email string) string {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}

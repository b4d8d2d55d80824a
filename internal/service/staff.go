package service

import (
	"context"
	"strings"

	"github.com/mmeshcher/coffeeshop-system/internal/model"
	"github.com/mmeshcher/coffeeshop-system/internal/repository"
	"github.com/mmeshcher/coffeeshop-system/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

// StaffRepository описывает доступ к сотрудникам.
type StaffRepository interface {
	CreateEmployee(ctx context.Context, e *model.Employee) error
	GetEmployee(ctx context.Context, id int64) (*model.Employee, error)
	GetEmployeeByEmployeeID(ctx context.Context, employeeID string) (*model.Employee, error)
	GetEmployeeByUserID(ctx context.Context, userID int64) (*model.Employee, error)
	ListEmployees(ctx context.Context, f repository.StaffFilter) ([]model.Employee, error)
	UpdateEmployee(ctx context.Context, e *model.Employee) error
	DeactivateEmployee(ctx context.Context, id int64) error
	DeleteEmployee(ctx context.Context, id int64) error
	EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error)
	UsernameTaken(ctx context.Context, username string, exceptID int64) (bool, error)
	EmployeeIDTaken(ctx context.Context, employeeID string, exceptID int64) (bool, error)
}

// StaffService управляет сотрудниками.
type StaffService struct {
	repo     StaffRepository
	hashCost int
}

// NewStaffService создаёт сервис сотрудников.
func NewStaffService(repo StaffRepository) *StaffService {
	return &StaffService{repo: repo, hashCost: bcrypt.DefaultCost}
}

// Create создаёт сотрудника. Email, логин и табельный номер должны быть уникальны.
// Пустой логин подбирается из email.
func (s *StaffService) Create(ctx context.Context, e *model.Employee, password string) (*model.Employee, error) {
	if !e.User.Role.IsStaff() {
		return nil, validation.Field("role", "must be a staff role")
	}

	e.User.Email = normalizeEmail(e.User.Email)
	e.User.Username = strings.TrimSpace(e.User.Username)
	e.EmployeeID = strings.TrimSpace(e.EmployeeID)

	if err := s.checkUnique(ctx, e, 0, 0); err != nil {
		return nil, err
	}

	if e.User.Username == "" {
		username, err := uniqueUsername(ctx, s.repo, e.User.Email)
		if err != nil {
			return nil, err
		}
		e.User.Username = username
	}

	hash, err := hashPassword(password, s.hashCost)
	if err != nil {
		return nil, err
	}
	e.User.PasswordHash = hash
	e.User.IsActive = true
	e.IsActive = true
	if e.User.PhoneNumber == "" {
		e.User.PhoneNumber = e.Phone
	}

	if err := s.repo.CreateEmployee(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// checkUnique проверяет уникальность email, логина и табельного номера среди
// остальных записей. userID и employeeID исключают саму обновляемую запись.
func (s *StaffService) checkUnique(ctx context.Context, e *model.Employee, userID, employeeID int64) error {
	taken, err := s.repo.EmailTaken(ctx, e.User.Email, userID)
	if err != nil {
		return err
	}
	if taken {
		return repository.ErrEmailExists
	}

	if e.User.Username != "" {
		taken, err = s.repo.UsernameTaken(ctx, e.User.Username, userID)
		if err != nil {
			return err
		}
		if taken {
			return repository.ErrUsernameExists
		}
	}

	taken, err = s.repo.EmployeeIDTaken(ctx, e.EmployeeID, employeeID)
	if err != nil {
		return err
	}
	if taken {
		return repository.ErrEmployeeIDExists
	}
	return nil
}

// Get возвращает сотрудника по идентификатору кадровой записи.
func (s *StaffService) Get(ctx context.Context, id int64) (*model.Employee, error) {
	return s.repo.GetEmployee(ctx, id)
}

// GetByEmployeeID возвращает сотрудника по табельному номеру.
func (s *StaffService) GetByEmployeeID(ctx context.Context, employeeID string) (*model.Employee, error) {
	return s.repo.GetEmployeeByEmployeeID(ctx, strings.TrimSpace(employeeID))
}

// GetByUserID возвращает сотрудника по идентификатору учётной записи.
func (s *StaffService) GetByUserID(ctx context.Context, userID int64) (*model.Employee, error) {
	return s.repo.GetEmployeeByUserID(ctx, userID)
}

// List возвращает сотрудников, при заданном active только с этим флагом.
func (s *StaffService) List(ctx context.Context, active *bool) ([]model.Employee, error) {
	return s.repo.ListEmployees(ctx, repository.StaffFilter{Active: active})
}

// ByDepartment возвращает сотрудников отдела.
func (s *StaffService) ByDepartment(ctx context.Context, department string) ([]model.Employee, error) {
	department = strings.TrimSpace(department)
	return s.repo.ListEmployees(ctx, repository.StaffFilter{Department: &department})
}

// ByRole возвращает сотрудников с ролью role.
func (s *StaffService) ByRole(ctx context.Context, role model.Role) ([]model.Employee, error) {
	if !role.IsStaff() {
		return nil, validation.Field("role", "must be a staff role")
	}
	return s.repo.ListEmployees(ctx, repository.StaffFilter{Role: &role})
}

// Update применяет частичное обновление. Уникальность перепроверяется только для изменённых полей.
func (s *StaffService) Update(ctx context.Context, id int64, patch model.StaffPatch) (*model.Employee, error) {
	e, err := s.repo.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Role != nil && !patch.Role.IsStaff() {
		return nil, validation.Field("role", "must be a staff role")
	}
	if patch.Email != nil {
		v := normalizeEmail(*patch.Email)
		patch.Email = &v
	}

	before := *e
	patch.Apply(e)

	if e.User.Email != before.User.Email || e.User.Username != before.User.Username || e.EmployeeID != before.EmployeeID {
		if err := s.checkUnique(ctx, e, e.User.ID, e.ID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateEmployee(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Deactivate снимает флаг активности с сотрудника и его учётной записи.
func (s *StaffService) Deactivate(ctx context.Context, id int64) (*model.Employee, error) {
	if err := s.repo.DeactivateEmployee(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetEmployee(ctx, id)
}

// Delete удаляет сотрудника вместе с учётной записью.
func (s *StaffService) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteEmployee(ctx, id)
}

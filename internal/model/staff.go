package model

import (
	"strings"
	"time"
)

// EmploymentType описывает тип занятости сотрудника.
type EmploymentType string

const (
	EmploymentFullTime EmploymentType = "FULL_TIME"
	EmploymentPartTime EmploymentType = "PART_TIME"
	EmploymentContract EmploymentType = "CONTRACT"
	EmploymentIntern   EmploymentType = "INTERN"
)

// Employee содержит кадровые данные сотрудника вместе с его учётной записью.
type Employee struct {
	ID                    int64
	User                  User
	EmployeeID            string
	HireDate              time.Time
	EmploymentType        EmploymentType
	SalaryCents           *int64
	HourlyRateCents       *int64
	EmergencyContactName  string
	EmergencyContactPhone string
	Address               string
	Phone                 string
	BirthDate             time.Time
	SocialSecurityNumber  string
	BankAccountNumber     string
	BankRoutingNumber     string
	PerformanceRating     *float64
	LastPerformanceReview *time.Time
	NextPerformanceReview *time.Time
	Notes                 string
	Position              string
	Department            string
	ShiftStart            string
	ShiftEnd              string
	SickDaysTotal         int
	SickDaysUsed          int
	VacationDaysTotal     int
	VacationDaysUsed      int
	IsActive              bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// MaskSensitive скрывает все символы, кроме последних visible.
// Значения не длиннее visible заменяются целиком.
func MaskSensitive(value string, visible int) string {
	r := []rune(value)
	if len(r) <= visible {
		return "*****"
	}
	return strings.Repeat("*", len(r)-visible) + string(r[len(r)-visible:])
}

// StaffPatch описывает частичное обновление сотрудника: nil-поля не изменяются.
type StaffPatch struct {
	FirstName             *string
	LastName              *string
	Username              *string
	Email                 *string
	Role                  *Role
	Sex                   *Sex
	Avatar                *string
	Phone                 *string
	EmployeeID            *string
	HireDate              *time.Time
	EmploymentType        *EmploymentType
	SalaryCents           *int64
	HourlyRateCents       *int64
	EmergencyContactName  *string
	EmergencyContactPhone *string
	Address               *string
	BirthDate             *time.Time
	SocialSecurityNumber  *string
	BankAccountNumber     *string
	BankRoutingNumber     *string
	PerformanceRating     *float64
	LastPerformanceReview *time.Time
	NextPerformanceReview *time.Time
	Notes                 *string
	Position              *string
	Department            *string
	ShiftStart            *string
	ShiftEnd              *string
	SickDaysTotal         *int
	SickDaysUsed          *int
	VacationDaysTotal     *int
	VacationDaysUsed      *int
	IsActive              *bool
}

// Apply переносит заданные поля патча в сотрудника.
func (p *StaffPatch) Apply(e *Employee) {
	setString(&e.User.FirstName, p.FirstName)
	setString(&e.User.LastName, p.LastName)
	setString(&e.User.Username, p.Username)
	setString(&e.User.Email, p.Email)
	if p.Role != nil {
		e.User.Role = *p.Role
	}
	if p.Sex != nil {
		e.User.Sex = *p.Sex
	}
	setString(&e.User.Avatar, p.Avatar)
	if p.Phone != nil {
		// телефон хранится и в учётной записи, и в кадровых данных
		e.User.PhoneNumber = *p.Phone
		e.Phone = *p.Phone
	}

	setString(&e.EmployeeID, p.EmployeeID)
	if p.HireDate != nil {
		e.HireDate = *p.HireDate
	}
	if p.EmploymentType != nil {
		e.EmploymentType = *p.EmploymentType
	}
	if p.SalaryCents != nil {
		e.SalaryCents = p.SalaryCents
	}
	if p.HourlyRateCents != nil {
		e.HourlyRateCents = p.HourlyRateCents
	}
	setString(&e.EmergencyContactName, p.EmergencyContactName)
	setString(&e.EmergencyContactPhone, p.EmergencyContactPhone)
	setString(&e.Address, p.Address)
	if p.BirthDate != nil {
		e.BirthDate = *p.BirthDate
	}
	setString(&e.SocialSecurityNumber, p.SocialSecurityNumber)
	setString(&e.BankAccountNumber, p.BankAccountNumber)
	setString(&e.BankRoutingNumber, p.BankRoutingNumber)
	if p.PerformanceRating != nil {
		e.PerformanceRating = p.PerformanceRating
	}
	if p.LastPerformanceReview != nil {
		e.LastPerformanceReview = p.LastPerformanceReview
	}
	if p.NextPerformanceReview != nil {
		e.NextPerformanceReview = p.NextPerformanceReview
	}
	setString(&e.Notes, p.Notes)
	setString(&e.Position, p.Position)
	setString(&e.Department, p.Department)
	setString(&e.ShiftStart, p.ShiftStart)
	setString(&e.ShiftEnd, p.ShiftEnd)
	setInt(&e.SickDaysTotal, p.SickDaysTotal)
	setInt(&e.SickDaysUsed, p.SickDaysUsed)
	setInt(&e.VacationDaysTotal, p.VacationDaysTotal)
	setInt(&e.VacationDaysUsed, p.VacationDaysUsed)
	if p.IsActive != nil {
		e.IsActive = *p.IsActive
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/coffeeshop-system/internal/model"
	"github.com/mmeshcher/coffeeshop-system/internal/validation"
)

const staffRoles = "CASHIER HELPER COOK BARISTA MANAGER OWNER"

type createEmployeeRequest struct {
	FirstName             string   `json:"firstName" validate:"notblank,max=50"`
	LastName              string   `json:"lastName" validate:"max=50"`
	Username              string   `json:"username" validate:"omitempty,min=3,max=50"`
	Email                 string   `json:"email" validate:"required,email,max=100"`
	Password              string   `json:"password" validate:"required,min=6,password"`
	Role                  string   `json:"role" validate:"required,oneof=CASHIER HELPER COOK BARISTA MANAGER OWNER"`
	Sex                   string   `json:"sex" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	Avatar                string   `json:"avatar" validate:"max=500"`
	Phone                 string   `json:"phone" validate:"omitempty,e164"`
	EmployeeID            string   `json:"employeeId" validate:"notblank,max=20"`
	HireDate              string   `json:"hireDate" validate:"required,datetime=2006-01-02"`
	EmploymentType        string   `json:"employmentType" validate:"required,oneof=FULL_TIME PART_TIME CONTRACT INTERN"`
	Salary                *float64 `json:"salary" validate:"omitempty,gte=0"`
	HourlyRate            *float64 `json:"hourlyRate" validate:"omitempty,gte=0"`
	EmergencyContactName  string   `json:"emergencyContactName" validate:"max=100"`
	EmergencyContactPhone string   `json:"emergencyContactPhone" validate:"omitempty,e164"`
	Address               string   `json:"address" validate:"max=255"`
	BirthDate             string   `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	SocialSecurityNumber  string   `json:"socialSecurityNumber" validate:"max=20"`
	BankAccountNumber     string   `json:"bankAccountNumber" validate:"max=30"`
	BankRoutingNumber     string   `json:"bankRoutingNumber" validate:"max=20"`
	Notes                 string   `json:"notes" validate:"max=1000"`
	Position              string   `json:"position" validate:"max=100"`
	Department            string   `json:"department" validate:"max=100"`
	ShiftStart            string   `json:"shiftStart" validate:"omitempty,hhmm"`
	ShiftEnd              string   `json:"shiftEnd" validate:"omitempty,hhmm"`
	SickDaysTotal         int      `json:"sickDaysTotal" validate:"gte=0"`
	VacationDaysTotal     int      `json:"vacationDaysTotal" validate:"gte=0"`
}

func (req *createEmployeeRequest) toModel() *model.Employee {
	hire, _ := parseDate(req.HireDate)
	birth, _ := parseDate(req.BirthDate)

	return &model.Employee{
		User: model.User{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Username:  req.Username,
			Email:     req.Email,
			Role:      model.Role(req.Role),
			Sex:       model.Sex(req.Sex),
			Avatar:    req.Avatar,
		},
		EmployeeID:            req.EmployeeID,
		HireDate:              hire,
		EmploymentType:        model.EmploymentType(req.EmploymentType),
		SalaryCents:           floatCents(req.Salary),
		HourlyRateCents:       floatCents(req.HourlyRate),
		EmergencyContactName:  req.EmergencyContactName,
		EmergencyContactPhone: req.EmergencyContactPhone,
		Address:               req.Address,
		Phone:                 req.Phone,
		BirthDate:             birth,
		SocialSecurityNumber:  req.SocialSecurityNumber,
		BankAccountNumber:     req.BankAccountNumber,
		BankRoutingNumber:     req.BankRoutingNumber,
		Notes:                 req.Notes,
		Position:              req.Position,
		Department:            req.Department,
		ShiftStart:            req.ShiftStart,
		ShiftEnd:              req.ShiftEnd,
		SickDaysTotal:         req.SickDaysTotal,
		VacationDaysTotal:     req.VacationDaysTotal,
	}
}

// CreateEmployee создаёт сотрудника вместе с учётной записью.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req createEmployeeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, "create employee", err)
		return
	}

	e, err := h.services.Staff.Create(r.Context(), req.toModel(), req.Password)
	if err != nil {
		h.writeError(w, r, "create employee", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEmployeeResponse(*e))
}

// updateEmployeeRequest — частичное обновление: отсутствующие поля не меняются.
type updateEmployeeRequest struct {
	FirstName             *string  `json:"firstName" validate:"omitempty,notblank,max=50"`
	LastName              *string  `json:"lastName" validate:"omitempty,max=50"`
	Username              *string  `json:"username" validate:"omitempty,min=3,max=50"`
	Email                 *string  `json:"email" validate:"omitempty,email,max=100"`
	Role                  *string  `json:"role" validate:"omitempty,oneof=CASHIER HELPER COOK BARISTA MANAGER OWNER"`
	Sex                   *string  `json:"sex" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	Avatar                *string  `json:"avatar" validate:"omitempty,max=500"`
	Phone                 *string  `json:"phone" validate:"omitempty,e164"`
	EmployeeID            *string  `json:"employeeId" validate:"omitempty,notblank,max=20"`
	HireDate              *string  `json:"hireDate" validate:"omitempty,datetime=2006-01-02"`
	EmploymentType        *string  `json:"employmentType" validate:"omitempty,oneof=FULL_TIME PART_TIME CONTRACT INTERN"`
	Salary                *float64 `json:"salary" validate:"omitempty,gte=0"`
	HourlyRate            *float64 `json:"hourlyRate" validate:"omitempty,gte=0"`
	EmergencyContactName  *string  `json:"emergencyContactName" validate:"omitempty,max=100"`
	EmergencyContactPhone *string  `json:"emergencyContactPhone" validate:"omitempty,e164"`
	Address               *string  `json:"address" validate:"omitempty,max=255"`
	BirthDate             *string  `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	SocialSecurityNumber  *string  `json:"socialSecurityNumber" validate:"omitempty,max=20"`
	BankAccountNumber     *string  `json:"bankAccountNumber" validate:"omitempty,max=30"`
	BankRoutingNumber     *string  `json:"bankRoutingNumber" validate:"omitempty,max=20"`
	PerformanceRating     *float64 `json:"performanceRating" validate:"omitempty,gte=0,lte=5"`
	LastPerformanceReview *string  `json:"lastPerformanceReview" validate:"omitempty,datetime=2006-01-02"`
	NextPerformanceReview *string  `json:"nextPerformanceReview" validate:"omitempty,datetime=2006-01-02"`
	Notes                 *string  `json:"notes" validate:"omitempty,max=1000"`
	Position              *string  `json:"position" validate:"omitempty,max=100"`
	Department            *string  `json:"department" validate:"omitempty,max=100"`
	ShiftStart            *string  `json:"shiftStart" validate:"omitempty,hhmm"`
	ShiftEnd              *string  `json:"shiftEnd" validate:"omitempty,hhmm"`
	SickDaysTotal         *int     `json:"sickDaysTotal" validate:"omitempty,gte=0"`
	SickDaysUsed          *int     `json:"sickDaysUsed" validate:"omitempty,gte=0"`
	VacationDaysTotal     *int     `json:"vacationDaysTotal" validate:"omitempty,gte=0"`
	VacationDaysUsed      *int     `json:"vacationDaysUsed" validate:"omitempty,gte=0"`
	IsActive              *bool    `json:"isActive"`
}

func (req *updateEmployeeRequest) toPatch() model.StaffPatch {
	p := model.StaffPatch{
		FirstName:             req.FirstName,
		LastName:              req.LastName,
		Username:              req.Username,
		Email:                 req.Email,
		Avatar:                req.Avatar,
		Phone:                 req.Phone,
		EmployeeID:            req.EmployeeID,
		HireDate:              datePtr(req.HireDate),
		SalaryCents:           floatCents(req.Salary),
		HourlyRateCents:       floatCents(req.HourlyRate),
		EmergencyContactName:  req.EmergencyContactName,
		EmergencyContactPhone: req.EmergencyContactPhone,
		Address:               req.Address,
		BirthDate:             datePtr(req.BirthDate),
		SocialSecurityNumber:  req.SocialSecurityNumber,
		BankAccountNumber:     req.BankAccountNumber,
		BankRoutingNumber:     req.BankRoutingNumber,
		PerformanceRating:     req.PerformanceRating,
		LastPerformanceReview: datePtr(req.LastPerformanceReview),
		NextPerformanceReview: datePtr(req.NextPerformanceReview),
		Notes:                 req.Notes,
		Position:              req.Position,
		Department:            req.Department,
		ShiftStart:            req.ShiftStart,
		ShiftEnd:              req.ShiftEnd,
		SickDaysTotal:         req.SickDaysTotal,
		SickDaysUsed:          req.SickDaysUsed,
		VacationDaysTotal:     req.VacationDaysTotal,
		VacationDaysUsed:      req.VacationDaysUsed,
		IsActive:              req.IsActive,
	}
	if req.Role != nil {
		role := model.Role(*req.Role)
		p.Role = &role
	}
	if req.Sex != nil {
		sex := model.Sex(*req.Sex)
		p.Sex = &sex
	}
	if req.EmploymentType != nil {
		et := model.EmploymentType(*req.EmploymentType)
		p.EmploymentType = &et
	}
	return p
}

// UpdateEmployee применяет частичное обновление к сотруднику.
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "update employee", err)
		return
	}

	var req updateEmployeeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, "update employee", err)
		return
	}

	e, err := h.services.Staff.Update(r.Context(), id, req.toPatch())
	if err != nil {
		h.writeError(w, r, "update employee", err)
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeResponse(*e))
}

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	active, err := queryBool(r, "active")
	if err != nil {
		h.writeError(w, r, "list employees", err)
		return
	}

	list, err := h.services.Staff.List(r.Context(), active)
	if err != nil {
		h.writeError(w, r, "list employees", err)
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeResponses(list))
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "get employee", err)
		return
	}

	e, err := h.services.Staff.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "get employee", err)
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeResponse(*e))
}

func (h *Handler) GetEmployeeByEmployeeID(w http.ResponseWriter, r *http.Request) {
	e, err := h.services.Staff.GetByEmployeeID(r.Context(), chi.URLParam(r, "employeeId"))
	if err != nil {
		h.writeError(w, r, "get employee by employee id", err)
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeResponse(*e))
}

func (h *Handler) GetEmployeeByUserID(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		h.writeError(w, r, "get employee by user id", err)
		return
	}

	e, err := h.services.Staff.GetByUserID(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, "get employee by user id", err)
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeResponse(*e))
}

func (h *Handler) EmployeesByDepartment(w http.ResponseWriter, r *http.Request) {
	list, err := h.services.Staff.ByDepartment(r.Context(), chi.URLParam(r, "department"))
	if err != nil {
		h.writeError(w, r, "list employees by department", err)
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeResponses(list))
}

func (h *Handler) EmployeesByRole(w http.ResponseWriter, r *http.Request) {
	role, ok := model.ParseRole(chi.URLParam(r, "role"))
	if !ok || !role.IsStaff() {
		h.writeError(w, r, "list employees by role", validation.Field("role", "must be one of: "+staffRoles))
		return
	}

	list, err := h.services.Staff.ByRole(r.Context(), role)
	if err != nil {
		h.writeError(w, r, "list employees by role", err)
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeResponses(list))
}

// DeactivateEmployee снимает флаг активности с сотрудника и его учётной записи.
func (h *Handler) DeactivateEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "deactivate employee", err)
		return
	}

	e, err := h.services.Staff.Deactivate(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "deactivate employee", err)
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeResponse(*e))
}

func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "delete employee", err)
		return
	}

	if err := h.services.Staff.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, "delete employee", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func floatCents(v *float64) *int64 {
	if v == nil {
		return nil
	}
	c := model.FloatToCents(*v)
	return &c
}

func datePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, ok := parseDate(*s)
	if !ok {
		return nil
	}
	return &t
}

// Package model содержит доменные сущности сервиса кофейни.
package model

import (
	"strings"
	"time"
)

// Role описывает роль учётной записи.
type Role string

const (
	RoleClient  Role = "CLIENT"
	RoleCashier Role = "CASHIER"
	RoleHelper  Role = "HELPER"
	RoleCook    Role = "COOK"
	RoleBarista Role = "BARISTA"
	RoleManager Role = "MANAGER"
	RoleOwner   Role = "OWNER"
)

// StaffRoles перечисляет все роли сотрудников (всё, кроме клиента).
var StaffRoles = []Role{RoleCashier, RoleHelper, RoleCook, RoleBarista, RoleManager, RoleOwner}

// ParseRole разбирает роль без учёта регистра.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleClient, RoleCashier, RoleHelper, RoleCook, RoleBarista, RoleManager, RoleOwner:
		return r, true
	}
	return "", false
}

// IsStaff сообщает, относится ли роль к персоналу.
func (r Role) IsStaff() bool {
	return r != RoleClient && r != ""
}

// Sex описывает пол пользователя.
type Sex string

const (
	SexMale   Sex = "MALE"
	SexFemale Sex = "FEMALE"
	SexOther  Sex = "OTHER"
)

// ParseSex разбирает пол без учёта регистра. Пустая строка допустима и означает «не указан».
func ParseSex(s string) (Sex, bool) {
	v := Sex(strings.ToUpper(strings.TrimSpace(s)))
	switch v {
	case SexMale, SexFemale, SexOther, "":
		return v, true
	}
	return "", false
}

// User представляет учётную запись клиента или сотрудника.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Username     string
	Email        string
	PasswordHash []byte
	Role         Role
	Sex          Sex
	Avatar       string
	PhoneNumber  string
	Points       int
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Name возвращает полное имя пользователя.
func (u *User) Name() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// SplitName делит полное имя на имя и фамилию по первому пробелу.
func SplitName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

package handler

import (
	"net/http"
	"strings"

	"github.com/mmeshcher/coffeeshop-system/internal/model"
	"github.com/mmeshcher/coffeeshop-system/internal/service"
)

type signUpRequest struct {
	Name     string `json:"name" validate:"notblank,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=6,password"`
	Sex      string `json:"sex" validate:"omitempty,oneof=MALE FEMALE OTHER male female other"`
	Phone    string `json:"phoneNumber" validate:"omitempty,e164"`
}

// SignUp регистрирует нового клиента и сразу выдаёт ему токен.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, "sign up", err)
		return
	}

	sex, _ := model.ParseSex(req.Sex)
	res, err := h.services.Accounts.SignUp(r.Context(), service.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Sex:      sex,
		Phone:    req.Phone,
	})
	if err != nil {
		h.writeError(w, r, "sign up", err)
		return
	}

	writeJSON(w, http.StatusCreated, toAuthResponse(res))
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login выполняет аутентификацию по email и паролю.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, "login", err)
		return
	}

	res, err := h.services.Accounts.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		h.writeError(w, r, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, toAuthResponse(res))
}

// Logout ничего не хранит на сервере: токен просто перестаёт использоваться клиентом.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Profile возвращает учётную запись текущего пользователя.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	u, err := h.services.Accounts.Profile(r.Context(), claims.UserID)
	if err != nil {
		h.writeError(w, r, "get profile", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(*u))
}

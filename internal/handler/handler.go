// Package handler содержит HTTP-обработчики API сервиса кофейни.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/coffeeshop-system/internal/middleware"
	"github.com/mmeshcher/coffeeshop-system/internal/model"
	"github.com/mmeshcher/coffeeshop-system/internal/repository"
	"github.com/mmeshcher/coffeeshop-system/internal/service"
	"github.com/mmeshcher/coffeeshop-system/internal/validation"
)

// Accounts — учётные записи и клиенты.
type Accounts interface {
	SignUp(ctx context.Context, in service.SignUpInput) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	Profile(ctx context.Context, userID int64) (*model.User, error)
	ListCustomers(ctx context.Context, active *bool) ([]model.User, error)
	PageCustomers(ctx context.Context, active *bool, page model.PageRequest) (model.Page[model.User], error)
	GetCustomer(ctx context.Context, id int64) (*model.User, error)
	GetCustomerByEmail(ctx context.Context, email string) (*model.User, error)
	SetCustomerActive(ctx context.Context, id int64, active bool) (*model.User, error)
}

// Staff — сотрудники.
type Staff interface {
	Create(ctx context.Context, e *model.Employee, password string) (*model.Employee, error)
	Get(ctx context.Context, id int64) (*model.Employee, error)
	GetByEmployeeID(ctx context.Context, employeeID string) (*model.Employee, error)
	GetByUserID(ctx context.Context, userID int64) (*model.Employee, error)
	List(ctx context.Context, active *bool) ([]model.Employee, error)
	ByDepartment(ctx context.Context, department string) ([]model.Employee, error)
	ByRole(ctx context.Context, role model.Role) ([]model.Employee, error)
	Update(ctx context.Context, id int64, patch model.StaffPatch) (*model.Employee, error)
	Deactivate(ctx context.Context, id int64) (*model.Employee, error)
	Delete(ctx context.Context, id int64) error
}

// Menu — каталог меню.
type Menu interface {
	Page(ctx context.Context, f model.MenuFilter, page model.PageRequest) (model.Page[model.MenuItem], error)
	Get(ctx context.Context, id int64) (*model.MenuItem, error)
	Create(ctx context.Context, m *model.MenuItem) (*model.MenuItem, error)
	Update(ctx context.Context, id int64, m *model.MenuItem) (*model.MenuItem, error)
	SetStock(ctx context.Context, id int64, inStock bool) (*model.MenuItem, error)
	Discontinue(ctx context.Context, id int64) (*model.MenuItem, error)
	Delete(ctx context.Context, id int64) error
	ByType(ctx context.Context, t model.ItemType) ([]model.MenuItem, error)
	OnSale(ctx context.Context) ([]model.MenuItem, error)
	Combos(ctx context.Context) ([]model.MenuItem, error)
	TopBought(ctx context.Context, limit int) ([]model.MenuItem, error)
	TopRated(ctx context.Context, limit int) ([]model.MenuItem, error)
	Promotional(ctx context.Context, limit int) ([]model.MenuItem, error)
}

// Promotions — акции.
type Promotions interface {
	Create(ctx context.Context, p *model.Promotion) (*model.Promotion, error)
	List(ctx context.Context, activeOnly bool) ([]model.Promotion, error)
	Get(ctx context.Context, id int64) (*model.Promotion, error)
	GetByCode(ctx context.Context, code string) (*model.Promotion, error)
	SetActive(ctx context.Context, id int64, active bool) (*model.Promotion, error)
	LinkMenuItems(ctx context.Context, id int64, menuItemIDs []int64) (*model.Promotion, error)
	Quote(ctx context.Context, id int64, amountCents int64) (*service.DiscountQuote, error)
}

// Orders — заказы.
type Orders interface {
	Create(ctx context.Context, in service.CreateOrderInput) (*model.Order, error)
	AddItem(ctx context.Context, orderID int64, in service.OrderItemInput) (*model.Order, error)
	Get(ctx context.Context, id int64) (*model.Order, error)
	GetByNumber(ctx context.Context, number string) (*model.Order, error)
	Page(ctx context.Context, f repository.OrderFilter, page model.PageRequest) (model.Page[model.Order], error)
	UpdateStatus(ctx context.Context, orderID int64, to model.OrderStatus, actorID int64) (*model.Order, error)
	Assign(ctx context.Context, orderID, staffUserID int64) (*model.Order, error)
}

// History — история покупок.
type History interface {
	List(ctx context.Context) ([]model.PurchaseHistory, error)
	ByCustomer(ctx context.Context, customerID int64) ([]model.PurchaseHistory, error)
	PageByCustomer(ctx context.Context, customerID int64, page model.PageRequest) (model.Page[model.PurchaseHistory], error)
	Get(ctx context.Context, id int64) (*model.PurchaseHistory, error)
	ByOrderNumber(ctx context.Context, number string) (*model.PurchaseHistory, error)
	Stats(ctx context.Context, customerID int64) (*service.CustomerStats, error)
	DateRange(ctx context.Context, from, to time.Time, customerID *int64) ([]model.PurchaseHistory, error)
}

// WorkLogs — учёт рабочего времени.
type WorkLogs interface {
	ClockIn(ctx context.Context, userID int64, notes string) (*model.WorkLog, error)
	ClockOut(ctx context.Context, userID int64, breakMinutes int, notes string) (*model.WorkLog, error)
	Active(ctx context.Context, userID int64) (*model.WorkLog, error)
	List(ctx context.Context, userID int64, from, to *time.Time) ([]model.WorkLog, error)
}

// Services объединяет сервисы, которые использует Handler.
type Services struct {
	Accounts   Accounts
	Staff      Staff
	Menu       Menu
	Promotions Promotions
	Orders     Orders
	History    History
	WorkLogs   WorkLogs
}

// Handler реализует HTTP-обработчики API сервиса кофейни.
type Handler struct {
	services       Services
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Services, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		services:       s,
		logger:         logger,
		authMiddleware: auth,
	}
}

// errForbidden — доступ к чужим данным.
var errForbidden = errors.New("access denied")

// errMalformedBody — тело запроса не разбирается как JSON.
var errMalformedBody = errors.New("malformed JSON body")

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError переводит ошибку в HTTP-статус. Непредвиденные ошибки логируются,
// клиенту отдаётся общее сообщение.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var fields validation.FieldErrors

	switch {
	case errors.As(err, &fields):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields})
	case errors.Is(err, errMalformedBody),
		errors.Is(err, service.ErrItemUnavailable),
		errors.Is(err, service.ErrPromoNotApplicable):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrAccountInactive):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, errForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, repository.ErrAlreadyExists),
		errors.Is(err, repository.ErrPromotionExhausted),
		errors.Is(err, repository.ErrMenuItemInUse),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrOrderLocked):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		h.logger.Error(op+" error",
			zap.Error(err),
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
	}
}

// decodeJSON разбирает тело запроса в dst и проверяет его теги validate.
func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errMalformedBody)
		}
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return validation.Struct(dst)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, validation.Field(name, "must be a positive integer")
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, validation.Field(name, "must be an integer")
	}
	return v, nil
}

func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, validation.Field(name, "must be true or false")
	}
	return &v, nil
}

const dateLayout = "2006-01-02"

// queryDate разбирает дату YYYY-MM-DD или отметку времени RFC 3339.
func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	return nil, validation.Field(name, "must be a date in format YYYY-MM-DD")
}

// parsePage читает page, size, sortBy и sortDir из строки запроса.
func parsePage(r *http.Request) (model.PageRequest, error) {
	page, err := queryInt(r, "page", 0)
	if err != nil {
		return model.PageRequest{}, err
	}
	size, err := queryInt(r, "size", model.DefaultPageSize)
	if err != nil {
		return model.PageRequest{}, err
	}

	q := r.URL.Query()
	sortDir := q.Get("sortDir")
	if sortDir != "" && !strings.EqualFold(sortDir, "asc") && !strings.EqualFold(sortDir, "desc") {
		return model.PageRequest{}, validation.Field("sortDir", "must be one of: asc, desc")
	}

	return model.PageRequest{
		Page:    page,
		Size:    size,
		SortBy:  q.Get("sortBy"),
		SortDir: sortDir,
	}.Normalize(), nil
}

// currentUser возвращает данные токена текущего запроса.
func currentUser(r *http.Request) (*middleware.Claims, bool) {
	return middleware.ClaimsFromContext(r.Context())
}

// canSeeCustomer разрешает сотрудникам доступ к любому клиенту, клиенту — только к себе.
func canSeeCustomer(r *http.Request, customerID int64) bool {
	claims, ok := currentUser(r)
	if !ok {
		return false
	}
	return claims.Role.IsStaff() || claims.UserID == customerID
}

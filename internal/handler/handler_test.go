package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/coffeeshop-system/internal/middleware"
	"github.com/mmeshcher/coffeeshop-system/internal/model"
	"github.com/mmeshcher/coffeeshop-system/internal/repository"
	"github.com/mmeshcher/coffeeshop-system/internal/service"
)

// Заглушки встраивают интерфейс: неожиданный вызов не переопределённого метода паникует.

type stubAccounts struct {
	Accounts

	signUpIn  service.SignUpInput
	authRes   *service.AuthResult
	authErr   error
	profile   *model.User
	customers []model.User
}

func (s *stubAccounts) SignUp(_ context.Context, in service.SignUpInput) (*service.AuthResult, error) {
	s.signUpIn = in
	return s.authRes, s.authErr
}

func (s *stubAccounts) Login(context.Context, string, string) (*service.AuthResult, error) {
	return s.authRes, s.authErr
}

func (s *stubAccounts) Profile(context.Context, int64) (*model.User, error) {
	if s.profile == nil {
		return nil, repository.ErrUserNotFound
	}
	return s.profile, nil
}

func (s *stubAccounts) ListCustomers(context.Context, *bool) ([]model.User, error) {
	return s.customers, nil
}

type stubStaff struct {
	Staff

	employee *model.Employee
}

func (s *stubStaff) List(context.Context, *bool) ([]model.Employee, error) {
	return nil, nil
}

func (s *stubStaff) Get(context.Context, int64) (*model.Employee, error) {
	if s.employee == nil {
		return nil, repository.ErrEmployeeNotFound
	}
	return s.employee, nil
}

type stubMenu struct {
	Menu

	filter model.MenuFilter
	page   model.PageRequest
	err    error
}

func (s *stubMenu) Page(_ context.Context, f model.MenuFilter, page model.PageRequest) (model.Page[model.MenuItem], error) {
	s.filter = f
	s.page = page
	items := []model.MenuItem{{ID: 1, Name: "Latte", PriceCents: 450, Type: model.ItemCoffee}}
	return model.NewPage(items, page, 1), s.err
}

type stubOrders struct {
	Orders

	createIn service.CreateOrderInput
	order    *model.Order
	err      error
	statusTo model.OrderStatus
	statusBy int64
	pageFilt repository.OrderFilter
}

func (s *stubOrders) Create(_ context.Context, in service.CreateOrderInput) (*model.Order, error) {
	s.createIn = in
	return s.order, s.err
}

func (s *stubOrders) Get(context.Context, int64) (*model.Order, error) {
	if s.order == nil {
		return nil, repository.ErrOrderNotFound
	}
	return s.order, nil
}

func (s *stubOrders) Page(_ context.Context, f repository.OrderFilter, page model.PageRequest) (model.Page[model.Order], error) {
	s.pageFilt = f
	return model.NewPage[model.Order](nil, page, 0), nil
}

func (s *stubOrders) UpdateStatus(_ context.Context, _ int64, to model.OrderStatus, actorID int64) (*model.Order, error) {
	s.statusTo = to
	s.statusBy = actorID
	return s.order, s.err
}

type stubHistory struct {
	History

	customerID *int64
	from, to   time.Time
}

func (s *stubHistory) DateRange(_ context.Context, from, to time.Time, customerID *int64) ([]model.PurchaseHistory, error) {
	s.from, s.to, s.customerID = from, to, customerID
	return nil, nil
}

func newTestHandler(t *testing.T, s Services) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret", time.Hour)

	return NewHandler(s, logger, auth)
}

func bearer(t *testing.T, h *Handler, userID int64, role model.Role) string {
	t.Helper()

	token, _, err := h.authMiddleware.IssueToken(&model.User{ID: userID, Role: role, Email: "user@cafe.io"})
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(h *Handler, method, target, auth string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()

	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestSignUp_Success(t *testing.T) {
	accounts := &stubAccounts{authRes: &service.AuthResult{
		Token:     "tok",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      &model.User{ID: 1, Email: "anna@cafe.io", Role: model.RoleClient},
	}}
	h := newTestHandler(t, Services{Accounts: accounts})

	body, _ := json.Marshal(signUpRequest{
		Name:     "Anna Smith",
		Email:    "anna@cafe.io",
		Password: "secret-1",
		Sex:      "female",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/expose/auth/signup", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.SignUp(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	var resp authResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&resp))
	assert.Equal(t, "tok", resp.Token)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, model.RoleClient, resp.User.Role)
	assert.Equal(t, model.SexFemale, accounts.signUpIn.Sex)
}

func TestSignUp_BadRequest(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantFields []string
	}{
		{
			name:       "validation",
			body:       `{"name":"Anna","email":"","password":"123"}`,
			wantFields: []string{"email", "password"},
		},
		{
			name: "unknown field",
			body: `{"name":"Anna","email":"a@cafe.io","password":"secret-1","role":"OWNER"}`,
		},
		{
			name: "empty body",
			body: ``,
		},
		{
			name:       "password longer than 72 bytes",
			body:       `{"name":"Anna","email":"a@cafe.io","password":"` + strings.Repeat("a", 73) + `"}`,
			wantFields: []string{"password"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, Services{Accounts: &stubAccounts{}})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/expose/auth/signup", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.SignUp(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec)
			for _, f := range tt.wantFields {
				assert.Contains(t, resp.Fields, f)
			}
		})
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	h := newTestHandler(t, Services{Accounts: &stubAccounts{authErr: repository.ErrEmailExists}})

	rec := serve(h, http.MethodPost, "/api/v1/expose/auth/signup", "", signUpRequest{
		Name: "Anna", Email: "anna@cafe.io", Password: "secret-1",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin_Unauthorized(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "bad credentials", err: service.ErrInvalidCredentials},
		{name: "inactive", err: service.ErrAccountInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, Services{Accounts: &stubAccounts{authErr: tt.err}})

			rec := serve(h, http.MethodPost, "/api/v1/expose/auth/login", "", loginRequest{
				Email: "anna@cafe.io", Password: "secret-1",
			})

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.err.Error(), decodeError(t, rec).Error)
		})
	}
}

func TestSecure_RequiresToken(t *testing.T) {
	h := newTestHandler(t, Services{Accounts: &stubAccounts{profile: &model.User{ID: 3}}})

	rec := serve(h, http.MethodGet, "/api/v1/secure/user/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, http.MethodGet, "/api/v1/secure/user/profile", bearer(t, h, 3, model.RoleClient), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp userResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(3), resp.ID)
}

func TestStaff_RequiresManager(t *testing.T) {
	h := newTestHandler(t, Services{Staff: &stubStaff{}})

	tests := []struct {
		role model.Role
		want int
	}{
		{role: model.RoleClient, want: http.StatusForbidden},
		{role: model.RoleBarista, want: http.StatusForbidden},
		{role: model.RoleManager, want: http.StatusOK},
		{role: model.RoleOwner, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			rec := serve(h, http.MethodGet, "/api/v1/secure/staff", bearer(t, h, 5, tt.role), nil)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCustomers_StaffOnly(t *testing.T) {
	h := newTestHandler(t, Services{Accounts: &stubAccounts{customers: []model.User{{ID: 1}}}})

	rec := serve(h, http.MethodGet, "/api/v1/secure/customers", bearer(t, h, 1, model.RoleClient), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(h, http.MethodGet, "/api/v1/secure/customers?active=maybe", bearer(t, h, 2, model.RoleCashier), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodGet, "/api/v1/secure/customers", bearer(t, h, 2, model.RoleCashier), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEmployeeResponse_MasksSensitive(t *testing.T) {
	staff := &stubStaff{employee: &model.Employee{
		ID:                   1,
		User:                 model.User{ID: 10, Role: model.RoleBarista},
		EmployeeID:           "EMP-001",
		HireDate:             time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		SocialSecurityNumber: "123-45-6789",
		BankAccountNumber:    "9876",
	}}
	h := newTestHandler(t, Services{Staff: staff})

	rec := serve(h, http.MethodGet, "/api/v1/secure/staff/1", bearer(t, h, 5, model.RoleManager), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp employeeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "*******6789", resp.SocialSecurityNumber)
	assert.Equal(t, "*****", resp.BankAccountNumber)
	assert.Empty(t, resp.BankRoutingNumber)
	assert.Equal(t, "2024-05-01", resp.HireDate)
}

func TestPublicMenu(t *testing.T) {
	menu := &stubMenu{}
	h := newTestHandler(t, Services{Menu: menu})

	rec := serve(h, http.MethodGet, "/api/v1/expose/menu?type=coffee&sortBy=price&sortDir=DESC&size=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, menu.filter.Type)
	assert.Equal(t, model.ItemCoffee, *menu.filter.Type)
	assert.Equal(t, "price", menu.page.SortBy)
	assert.Equal(t, "desc", menu.page.SortDir)
	assert.Equal(t, 5, menu.page.Size)

	var page model.Page[menuItemResponse]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	require.Len(t, page.Content, 1)
	assert.InDelta(t, 4.50, page.Content[0].Price, 1e-9)

	rec = serve(h, http.MethodGet, "/api/v1/expose/menu?sortDir=sideways", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodGet, "/api/v1/expose/menu?type=tea", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateMenuItem_RequiresManager(t *testing.T) {
	h := newTestHandler(t, Services{Menu: &stubMenu{}})

	rec := serve(h, http.MethodPost, "/api/v1/secure/menu", bearer(t, h, 2, model.RoleBarista), menuItemRequest{})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(h, http.MethodPost, "/api/v1/secure/menu", bearer(t, h, 2, model.RoleManager), menuItemRequest{Price: 1000})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decodeError(t, rec).Fields
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "price")
	assert.Contains(t, fields, "type")
}

func TestCreateOrder_ClientOrdersForSelf(t *testing.T) {
	customer := int64(7)
	orders := &stubOrders{order: &model.Order{
		ID:          1,
		OrderNumber: "ORD-1",
		CustomerID:  &customer,
		TotalCents:  1234,
		Status:      model.OrderStatusPending,
		Items:       []model.OrderItem{{MenuItemID: 2, Quantity: 1, UnitPriceCents: 1122}},
	}}
	h := newTestHandler(t, Services{Orders: orders})

	other := int64(99)
	rec := serve(h, http.MethodPost, "/api/v1/secure/orders", bearer(t, h, 7, model.RoleClient), createOrderRequest{
		CustomerID:    &other,
		Items:         []orderItemRequest{{MenuItemID: 2, Quantity: 1}},
		PaymentMethod: "CASH",
		PromoCode:     "summer10",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	require.NotNil(t, orders.createIn.CustomerID)
	assert.Equal(t, int64(7), *orders.createIn.CustomerID)
	require.NotNil(t, orders.createIn.PaymentMethod)
	assert.Equal(t, model.PaymentCash, *orders.createIn.PaymentMethod)
	assert.Equal(t, "summer10", orders.createIn.PromoCode)

	var resp orderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.InDelta(t, 12.34, resp.Total, 1e-9)
	assert.InDelta(t, 11.22, resp.Items[0].UnitPrice, 1e-9)
}

func TestCreateOrder_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "unavailable item", err: fmt.Errorf("%w: %w", service.ErrItemUnavailable, repository.ErrMenuItemOutOfStock), want: http.StatusBadRequest},
		{name: "unknown promo", err: service.ErrPromoNotApplicable, want: http.StatusBadRequest},
		{name: "promo exhausted", err: repository.ErrPromotionExhausted, want: http.StatusConflict},
		{name: "unexpected", err: errors.New("connection reset"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, Services{Orders: &stubOrders{err: tt.err}})

			rec := serve(h, http.MethodPost, "/api/v1/secure/orders", bearer(t, h, 7, model.RoleCashier), createOrderRequest{
				Items: []orderItemRequest{{MenuItemID: 2, Quantity: 1}},
			})

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusInternalServerError {
				assert.Equal(t, "Internal Server Error", decodeError(t, rec).Error)
			}
		})
	}
}

func TestCreateOrder_ItemValidation(t *testing.T) {
	h := newTestHandler(t, Services{Orders: &stubOrders{}})

	rec := serve(h, http.MethodPost, "/api/v1/secure/orders", bearer(t, h, 7, model.RoleClient), createOrderRequest{
		Items: []orderItemRequest{{MenuItemID: 2, Quantity: 0}},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Fields, "items[0].quantity")
}

func TestGetOrder_Access(t *testing.T) {
	owner := int64(8)
	h := newTestHandler(t, Services{Orders: &stubOrders{order: &model.Order{ID: 4, CustomerID: &owner}}})

	rec := serve(h, http.MethodGet, "/api/v1/secure/orders/4", bearer(t, h, 7, model.RoleClient), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(h, http.MethodGet, "/api/v1/secure/orders/4", bearer(t, h, 8, model.RoleClient), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, http.MethodGet, "/api/v1/secure/orders/4", bearer(t, h, 2, model.RoleBarista), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, http.MethodGet, "/api/v1/secure/orders/abc", bearer(t, h, 2, model.RoleBarista), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMyOrders_FiltersByCurrentUser(t *testing.T) {
	orders := &stubOrders{}
	h := newTestHandler(t, Services{Orders: orders})

	rec := serve(h, http.MethodGet, "/api/v1/secure/orders/my", bearer(t, h, 7, model.RoleClient), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, orders.pageFilt.CustomerID)
	assert.Equal(t, int64(7), *orders.pageFilt.CustomerID)

	rec = serve(h, http.MethodGet, "/api/v1/secure/orders", bearer(t, h, 7, model.RoleClient), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateOrderStatus(t *testing.T) {
	orders := &stubOrders{order: &model.Order{ID: 4, Status: model.OrderStatusInProgress}}
	h := newTestHandler(t, Services{Orders: orders})

	rec := serve(h, http.MethodPatch, "/api/v1/secure/orders/4/status", bearer(t, h, 2, model.RoleBarista),
		orderStatusRequest{Status: "in_progress"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.OrderStatusInProgress, orders.statusTo)
	assert.Equal(t, int64(2), orders.statusBy)

	rec = serve(h, http.MethodPatch, "/api/v1/secure/orders/4/status", bearer(t, h, 2, model.RoleBarista),
		orderStatusRequest{Status: "FLYING"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	orders.err = fmt.Errorf("%w: COMPLETE -> PENDING", service.ErrInvalidTransition)
	rec = serve(h, http.MethodPatch, "/api/v1/secure/orders/4/status", bearer(t, h, 2, model.RoleBarista),
		orderStatusRequest{Status: "PENDING"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(h, http.MethodPatch, "/api/v1/secure/orders/4/status", bearer(t, h, 9, model.RoleClient),
		orderStatusRequest{Status: "READY"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHistoryDateRange(t *testing.T) {
	history := &stubHistory{}
	h := newTestHandler(t, Services{History: history})

	rec := serve(h, http.MethodGet, "/api/v1/secure/purchase-history/date-range", bearer(t, h, 7, model.RoleClient), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decodeError(t, rec).Fields
	assert.Contains(t, fields, "startDate")
	assert.Contains(t, fields, "endDate")

	rec = serve(h, http.MethodGet, "/api/v1/secure/purchase-history/date-range?startDate=2025-03-01&endDate=2025-03-31",
		bearer(t, h, 7, model.RoleClient), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, history.customerID)
	assert.Equal(t, int64(7), *history.customerID)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), history.from)

	rec = serve(h, http.MethodGet, "/api/v1/secure/purchase-history/date-range?startDate=2025-03-01&endDate=2025-03-31",
		bearer(t, h, 2, model.RoleCashier), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, history.customerID)
}

func TestCustomerHistory_ForeignCustomerForbidden(t *testing.T) {
	h := newTestHandler(t, Services{History: &stubHistory{}})

	rec := serve(h, http.MethodGet, "/api/v1/secure/purchase-history/customer/8/date-range?startDate=2025-03-01&endDate=2025-03-02",
		bearer(t, h, 7, model.RoleClient), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestNotFound(t *testing.T) {
	h := newTestHandler(t, Services{})

	rec := serve(h, http.MethodGet, "/api/v1/expose/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

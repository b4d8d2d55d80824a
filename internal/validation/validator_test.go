package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem struct {
	MenuItemID int64 `json:"menuItemId" validate:"required,gt=0"`
	Quantity   int   `json:"quantity" validate:"gte=1,lte=100"`
}

type testRequest struct {
	Name       string     `json:"name" validate:"notblank,max=10"`
	Email      string     `json:"email" validate:"required,email"`
	Price      float64    `json:"price" validate:"gte=0.01,lte=999.99"`
	Type       string     `json:"type" validate:"oneof=COFFEE DRINKS"`
	ShiftStart string     `json:"shiftStart,omitempty" validate:"omitempty,hhmm"`
	HireDate   string     `json:"hireDate" validate:"omitempty,datetime=2006-01-02"`
	Items      []testItem `json:"items" validate:"min=1,dive"`
}

func TestStructValid(t *testing.T) {
	req := testRequest{
		Name:       "Latte",
		Email:      "barista@example.com",
		Price:      4.5,
		Type:       "COFFEE",
		ShiftStart: "07:30",
		HireDate:   "2024-01-31",
		Items:      []testItem{{MenuItemID: 1, Quantity: 2}},
	}

	require.NoError(t, Struct(req))
}

func TestStructFieldErrors(t *testing.T) {
	req := testRequest{
		Name:       "   ",
		Email:      "not-an-email",
		Price:      0,
		Type:       "TEA",
		ShiftStart: "25:00",
		HireDate:   "31.01.2024",
		Items:      []testItem{{MenuItemID: 1, Quantity: 0}},
	}

	err := Struct(req)
	require.Error(t, err)

	var fields FieldErrors
	require.True(t, errors.As(err, &fields))

	assert.Equal(t, "is required", fields["name"])
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be greater than or equal to 0.01", fields["price"])
	assert.Equal(t, "must be one of: COFFEE, DRINKS", fields["type"])
	assert.Equal(t, "must be a time in format HH:MM", fields["shiftStart"])
	assert.Equal(t, "must be a date in format 2006-01-02", fields["hireDate"])
	assert.Equal(t, "must be greater than or equal to 1", fields["items[0].quantity"])
}

func TestStructEmptySlice(t *testing.T) {
	req := testRequest{Name: "Latte", Email: "a@b.co", Price: 1, Type: "COFFEE"}

	err := Struct(req)

	var fields FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Equal(t, "must contain at least 1 element(s)", fields["items"])
}

func TestStructPasswordBytes(t *testing.T) {
	type signUp struct {
		Password string `json:"password" validate:"required,min=6,password"`
	}

	require.NoError(t, Struct(signUp{Password: strings.Repeat("a", MaxPasswordBytes)}))

	tests := []struct {
		name     string
		password string
	}{
		{name: "ascii over limit", password: strings.Repeat("a", MaxPasswordBytes+1)},
		// 40 символов, но 80 байт
		{name: "multibyte over limit", password: strings.Repeat("ж", 40)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fields FieldErrors
			require.ErrorAs(t, Struct(signUp{Password: tt.password}), &fields)
			assert.Equal(t, "must be at most 72 bytes", fields["password"])
		})
	}
}

func TestFieldErrorsMessage(t *testing.T) {
	err := FieldErrors{"b": "is required", "a": "is invalid"}
	assert.Equal(t, "validation failed: a: is invalid; b: is required", err.Error())
	assert.Equal(t, FieldErrors{"endDate": "must be after startDate"}, Field("endDate", "must be after startDate"))
}

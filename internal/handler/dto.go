package handler

import (
	"time"

	"github.com/mmeshcher/coffeeshop-system/internal/model"
	"github.com/mmeshcher/coffeeshop-system/internal/service"
)

// Суммы в ответах отдаются в денежных единицах, проценты — в процентах.

type userResponse struct {
	ID          int64      `json:"id"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Role        model.Role `json:"role"`
	Sex         model.Sex  `json:"sex,omitempty"`
	Avatar      string     `json:"avatar,omitempty"`
	PhoneNumber string     `json:"phoneNumber,omitempty"`
	Points      int        `json:"points"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toUserResponse(u model.User) userResponse {
	return userResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.Role,
		Sex:         u.Sex,
		Avatar:      u.Avatar,
		PhoneNumber: u.PhoneNumber,
		Points:      u.Points,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func toUserResponses(users []model.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

type authResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"tokenType"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
}

func toAuthResponse(res *service.AuthResult) authResponse {
	return authResponse{
		Token:     res.Token,
		TokenType: "Bearer",
		ExpiresAt: res.ExpiresAt,
		User:      toUserResponse(*res.User),
	}
}

// visibleDigits — сколько последних символов чувствительных полей остаётся видимым.
const visibleDigits = 4

type employeeResponse struct {
	ID                    int64                `json:"id"`
	User                  userResponse         `json:"user"`
	EmployeeID            string               `json:"employeeId"`
	HireDate              string               `json:"hireDate"`
	EmploymentType        model.EmploymentType `json:"employmentType"`
	Salary                *float64             `json:"salary,omitempty"`
	HourlyRate            *float64             `json:"hourlyRate,omitempty"`
	EmergencyContactName  string               `json:"emergencyContactName,omitempty"`
	EmergencyContactPhone string               `json:"emergencyContactPhone,omitempty"`
	Address               string               `json:"address,omitempty"`
	Phone                 string               `json:"phone,omitempty"`
	BirthDate             string               `json:"birthDate,omitempty"`
	SocialSecurityNumber  string               `json:"socialSecurityNumber,omitempty"`
	BankAccountNumber     string               `json:"bankAccountNumber,omitempty"`
	BankRoutingNumber     string               `json:"bankRoutingNumber,omitempty"`
	PerformanceRating     *float64             `json:"performanceRating,omitempty"`
	LastPerformanceReview string               `json:"lastPerformanceReview,omitempty"`
	NextPerformanceReview string               `json:"nextPerformanceReview,omitempty"`
	Notes                 string               `json:"notes,omitempty"`
	Position              string               `json:"position,omitempty"`
	Department            string               `json:"department,omitempty"`
	ShiftStart            string               `json:"shiftStart,omitempty"`
	ShiftEnd              string               `json:"shiftEnd,omitempty"`
	SickDaysTotal         int                  `json:"sickDaysTotal"`
	SickDaysUsed          int                  `json:"sickDaysUsed"`
	VacationDaysTotal     int                  `json:"vacationDaysTotal"`
	VacationDaysUsed      int                  `json:"vacationDaysUsed"`
	IsActive              bool                 `json:"isActive"`
	CreatedAt             time.Time            `json:"createdAt"`
	UpdatedAt             time.Time            `json:"updatedAt"`
}

func toEmployeeResponse(e model.Employee) employeeResponse {
	return employeeResponse{
		ID:                    e.ID,
		User:                  toUserResponse(e.User),
		EmployeeID:            e.EmployeeID,
		HireDate:              formatDate(e.HireDate),
		EmploymentType:        e.EmploymentType,
		Salary:                centsPtr(e.SalaryCents),
		HourlyRate:            centsPtr(e.HourlyRateCents),
		EmergencyContactName:  e.EmergencyContactName,
		EmergencyContactPhone: e.EmergencyContactPhone,
		Address:               e.Address,
		Phone:                 e.Phone,
		BirthDate:             formatDate(e.BirthDate),
		SocialSecurityNumber:  maskOptional(e.SocialSecurityNumber),
		BankAccountNumber:     maskOptional(e.BankAccountNumber),
		BankRoutingNumber:     maskOptional(e.BankRoutingNumber),
		PerformanceRating:     e.PerformanceRating,
		LastPerformanceReview: formatDatePtr(e.LastPerformanceReview),
		NextPerformanceReview: formatDatePtr(e.NextPerformanceReview),
		Notes:                 e.Notes,
		Position:              e.Position,
		Department:            e.Department,
		ShiftStart:            e.ShiftStart,
		ShiftEnd:              e.ShiftEnd,
		SickDaysTotal:         e.SickDaysTotal,
		SickDaysUsed:          e.SickDaysUsed,
		VacationDaysTotal:     e.VacationDaysTotal,
		VacationDaysUsed:      e.VacationDaysUsed,
		IsActive:              e.IsActive,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
}

func toEmployeeResponses(list []model.Employee) []employeeResponse {
	out := make([]employeeResponse, 0, len(list))
	for _, e := range list {
		out = append(out, toEmployeeResponse(e))
	}
	return out
}

func maskOptional(v string) string {
	if v == "" {
		return ""
	}
	return model.MaskSensitive(v, visibleDigits)
}

type menuItemResponse struct {
	ID                     int64          `json:"id"`
	Name                   string         `json:"name"`
	Description            string         `json:"description"`
	Price                  float64        `json:"price"`
	OriginalPrice          *float64       `json:"originalPrice,omitempty"`
	Type                   model.ItemType `json:"type"`
	Image                  string         `json:"image"`
	Rating                 float64        `json:"rating"`
	ReviewsCount           int            `json:"reviewsCount"`
	WeeklyReviews          int            `json:"weeklyReviews"`
	MonthlyReviews         int            `json:"monthlyReviews"`
	WeeklyBuys             int            `json:"weeklyBuys"`
	MonthlyBuys            int            `json:"monthlyBuys"`
	PositiveReviewsWeekly  int            `json:"positiveReviewsWeekly"`
	PositiveReviewsMonthly int            `json:"positiveReviewsMonthly"`
	Tags                   string         `json:"tags,omitempty"`
	InStock                bool           `json:"inStock"`
	IsOnSale               bool           `json:"isOnSale"`
	IsCombo                bool           `json:"isCombo"`
	CreatedAt              time.Time      `json:"createdAt"`
	UpdatedAt              time.Time      `json:"updatedAt"`
}

func toMenuItemResponse(m model.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:                     m.ID,
		Name:                   m.Name,
		Description:            m.Description,
		Price:                  model.CentsToFloat(m.PriceCents),
		OriginalPrice:          centsPtr(m.OriginalPriceCents),
		Type:                   m.Type,
		Image:                  m.Image,
		Rating:                 m.Rating,
		ReviewsCount:           m.ReviewsCount,
		WeeklyReviews:          m.WeeklyReviews,
		MonthlyReviews:         m.MonthlyReviews,
		WeeklyBuys:             m.WeeklyBuys,
		MonthlyBuys:            m.MonthlyBuys,
		PositiveReviewsWeekly:  m.PositiveReviewsWeekly,
		PositiveReviewsMonthly: m.PositiveReviewsMonthly,
		Tags:                   m.Tags,
		InStock:                m.InStock,
		IsOnSale:               m.IsOnSale,
		IsCombo:                m.IsCombo,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}
}

func toMenuItemResponses(items []model.MenuItem) []menuItemResponse {
	out := make([]menuItemResponse, 0, len(items))
	for _, m := range items {
		out = append(out, toMenuItemResponse(m))
	}
	return out
}

type promotionResponse struct {
	ID                    int64              `json:"id"`
	Name                  string             `json:"name"`
	Description           string             `json:"description,omitempty"`
	PromoType             *model.PromoType   `json:"promoType,omitempty"`
	DiscountPercentage    *float64           `json:"discountPercentage,omitempty"`
	DiscountAmount        *float64           `json:"discountAmount,omitempty"`
	StartDate             time.Time          `json:"startDate"`
	EndDate               time.Time          `json:"endDate"`
	IsActive              bool               `json:"isActive"`
	UsageLimit            *int               `json:"usageLimit,omitempty"`
	CurrentUsage          int                `json:"currentUsage"`
	MinimumOrderAmount    *float64           `json:"minimumOrderAmount,omitempty"`
	MaximumDiscountAmount *float64           `json:"maximumDiscountAmount,omitempty"`
	PromoCode             *string            `json:"promoCode,omitempty"`
	ApplicableTo          model.ApplicableTo `json:"applicableTo"`
	MenuItemIDs           []int64            `json:"menuItemIds"`
	CreatedAt             time.Time          `json:"createdAt"`
	UpdatedAt             time.Time          `json:"updatedAt"`
}

func toPromotionResponse(p model.Promotion) promotionResponse {
	var pct *float64
	if p.DiscountPercentageBP != nil {
		v := model.BasisPointsToPercent(*p.DiscountPercentageBP)
		pct = &v
	}
	ids := p.MenuItemIDs
	if ids == nil {
		ids = []int64{}
	}

	return promotionResponse{
		ID:                    p.ID,
		Name:                  p.Name,
		Description:           p.Description,
		PromoType:             p.PromoType,
		DiscountPercentage:    pct,
		DiscountAmount:        centsPtr(p.DiscountAmountCents),
		StartDate:             p.StartDate,
		EndDate:               p.EndDate,
		IsActive:              p.IsActive,
		UsageLimit:            p.UsageLimit,
		CurrentUsage:          p.CurrentUsage,
		MinimumOrderAmount:    centsPtr(p.MinimumOrderAmountCents),
		MaximumDiscountAmount: centsPtr(p.MaximumDiscountAmountCents),
		PromoCode:             p.PromoCode,
		ApplicableTo:          p.ApplicableTo,
		MenuItemIDs:           ids,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

func toPromotionResponses(list []model.Promotion) []promotionResponse {
	out := make([]promotionResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPromotionResponse(p))
	}
	return out
}

type quoteResponse struct {
	PromotionID int64   `json:"promotionId"`
	Amount      float64 `json:"amount"`
	Discount    float64 `json:"discount"`
	FinalAmount float64 `json:"finalAmount"`
	Usable      bool    `json:"usable"`
}

type orderItemResponse struct {
	ID                  int64   `json:"id"`
	MenuItemID          int64   `json:"menuItemId"`
	MenuItemName        string  `json:"menuItemName"`
	Quantity            int     `json:"quantity"`
	UnitPrice           float64 `json:"unitPrice"`
	Discount            float64 `json:"discount"`
	Subtotal            float64 `json:"subtotal"`
	SpecialInstructions string  `json:"specialInstructions,omitempty"`
}

type orderResponse struct {
	ID                  int64                `json:"id"`
	OrderNumber         string               `json:"orderNumber"`
	QueueNumber         int                  `json:"queueNumber"`
	CustomerID          *int64               `json:"customerId,omitempty"`
	CustomerName        string               `json:"customerName,omitempty"`
	Items               []orderItemResponse  `json:"items"`
	ItemCount           int                  `json:"itemCount"`
	Subtotal            float64              `json:"subtotal"`
	Discount            float64              `json:"discount"`
	Tax                 float64              `json:"tax"`
	Total               float64              `json:"total"`
	Status              model.OrderStatus    `json:"status"`
	PaymentMethod       *model.PaymentMethod `json:"paymentMethod,omitempty"`
	PromoID             *int64               `json:"promoId,omitempty"`
	PointsEarned        int                  `json:"pointsEarned"`
	PointsUsed          int                  `json:"pointsUsed"`
	AssignedTo          *int64               `json:"assignedTo,omitempty"`
	CompletedBy         *int64               `json:"completedBy,omitempty"`
	SpecialInstructions string               `json:"specialInstructions,omitempty"`
	Notes               string               `json:"notes,omitempty"`
	OrderDate           time.Time            `json:"orderDate"`
	EstimatedReadyTime  *time.Time           `json:"estimatedReadyTime,omitempty"`
	ReadyTime           *time.Time           `json:"readyTime,omitempty"`
	CompletedTime       *time.Time           `json:"completedTime,omitempty"`
	CreatedAt           time.Time            `json:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt"`
}

func toOrderResponse(o model.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ID:                  it.ID,
			MenuItemID:          it.MenuItemID,
			MenuItemName:        it.MenuItemName,
			Quantity:            it.Quantity,
			UnitPrice:           model.CentsToFloat(it.UnitPriceCents),
			Discount:            model.CentsToFloat(it.DiscountCents),
			Subtotal:            model.CentsToFloat(it.SubtotalCents),
			SpecialInstructions: it.SpecialInstructions,
		})
	}

	return orderResponse{
		ID:                  o.ID,
		OrderNumber:         o.OrderNumber,
		QueueNumber:         o.QueueNumber,
		CustomerID:          o.CustomerID,
		CustomerName:        o.CustomerName,
		Items:               items,
		ItemCount:           o.ItemCount,
		Subtotal:            model.CentsToFloat(o.SubtotalCents),
		Discount:            model.CentsToFloat(o.DiscountCents),
		Tax:                 model.CentsToFloat(o.TaxCents),
		Total:               model.CentsToFloat(o.TotalCents),
		Status:              o.Status,
		PaymentMethod:       o.PaymentMethod,
		PromoID:             o.PromoID,
		PointsEarned:        o.PointsEarned,
		PointsUsed:          o.PointsUsed,
		AssignedTo:          o.AssignedTo,
		CompletedBy:         o.CompletedBy,
		SpecialInstructions: o.SpecialInstructions,
		Notes:               o.Notes,
		OrderDate:           o.OrderDate,
		EstimatedReadyTime:  o.EstimatedReadyTime,
		ReadyTime:           o.ReadyTime,
		CompletedTime:       o.CompletedTime,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

type historyResponse struct {
	ID            int64                `json:"id"`
	CustomerID    int64                `json:"customerId"`
	CustomerName  string               `json:"customerName"`
	CustomerEmail string               `json:"customerEmail"`
	OrderID       int64                `json:"orderId"`
	OrderNumber   string               `json:"orderNumber"`
	Status        model.OrderStatus    `json:"status"`
	TotalAmount   float64              `json:"totalAmount"`
	Discount      float64              `json:"discountAmount"`
	ItemsCount    int                  `json:"itemsCount"`
	OrderDate     time.Time            `json:"orderDate"`
	PaymentMethod *model.PaymentMethod `json:"paymentMethod,omitempty"`
	PointsEarned  int                  `json:"pointsEarned"`
	PointsUsed    int                  `json:"pointsUsed"`
	Notes         string               `json:"notes,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
}

func toHistoryResponse(h model.PurchaseHistory) historyResponse {
	return historyResponse{
		ID:            h.ID,
		CustomerID:    h.CustomerID,
		CustomerName:  h.CustomerName,
		CustomerEmail: h.CustomerEmail,
		OrderID:       h.Order.ID,
		OrderNumber:   h.OrderNumber(),
		Status:        h.Status(),
		TotalAmount:   model.CentsToFloat(h.TotalCents()),
		Discount:      model.CentsToFloat(h.DiscountCents()),
		ItemsCount:    h.ItemsCount(),
		OrderDate:     h.OrderDate(),
		PaymentMethod: h.PaymentMethod(),
		PointsEarned:  h.PointsEarned(),
		PointsUsed:    h.PointsUsed(),
		Notes:         h.Notes,
		CreatedAt:     h.CreatedAt,
	}
}

func toHistoryResponses(list []model.PurchaseHistory) []historyResponse {
	out := make([]historyResponse, 0, len(list))
	for _, h := range list {
		out = append(out, toHistoryResponse(h))
	}
	return out
}

type workLogResponse struct {
	ID                   int64            `json:"id"`
	UserID               int64            `json:"userId"`
	ClockInTime          time.Time        `json:"clockInTime"`
	ClockOutTime         *time.Time       `json:"clockOutTime,omitempty"`
	WorkDate             string           `json:"workDate"`
	TotalHoursWorked     *float64         `json:"totalHoursWorked,omitempty"`
	BreakDurationMinutes int              `json:"breakDurationMinutes"`
	OvertimeHours        float64          `json:"overtimeHours"`
	Notes                string           `json:"notes,omitempty"`
	Status               model.WorkStatus `json:"status"`
	Active               bool             `json:"active"`
}

func toWorkLogResponse(w model.WorkLog) workLogResponse {
	return workLogResponse{
		ID:                   w.ID,
		UserID:               w.UserID,
		ClockInTime:          w.ClockInTime,
		ClockOutTime:         w.ClockOutTime,
		WorkDate:             formatDate(w.WorkDate),
		TotalHoursWorked:     w.TotalHoursWorked,
		BreakDurationMinutes: w.BreakDurationMinutes,
		OvertimeHours:        w.OvertimeHours,
		Notes:                w.Notes,
		Status:               w.Status,
		Active:               w.IsActive(),
	}
}

func centsPtr(v *int64) *float64 {
	if v == nil {
		return nil
	}
	f := model.CentsToFloat(*v)
	return &f
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDate(*t)
}

// parseDate разбирает необязательную дату YYYY-MM-DD из тела запроса; формат уже проверен тегом datetime.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s)
	return t, err == nil
}

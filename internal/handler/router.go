package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/coffeeshop-system/internal/middleware"
	"github.com/mmeshcher/coffeeshop-system/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса кофейни.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	staffOnly := custommiddleware.RequireRole(model.StaffRoles...)
	managers := custommiddleware.RequireRole(model.RoleManager, model.RoleOwner)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/expose", func(r chi.Router) {
			r.Post("/auth/signup", h.SignUp)
			r.Post("/auth/login", h.Login)
			r.Post("/auth/logout", h.Logout)

			r.Route("/menu", func(r chi.Router) {
				r.Get("/", h.PublicMenu)
				r.Get("/recommendations", h.TopBought)
				r.Get("/favorites", h.TopRated)
				r.Get("/promotions", h.PromotionalMenu)
				r.Get("/by-type", h.MenuByType)
				r.Get("/on-sale", h.MenuOnSale)
				r.Get("/combos", h.MenuCombos)
				r.Get("/{id}", h.GetMenuItem)
			})

			r.Get("/promotions/active", h.ActivePromotions)
		})

		r.Route("/secure", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/user/profile", h.Profile)
			r.Post("/auth/logout", h.Logout)

			r.Route("/customers", func(r chi.Router) {
				r.Use(staffOnly)

				r.Get("/", h.ListCustomers)
				r.Get("/paginated", h.PageCustomers)
				r.Get("/email/{email}", h.GetCustomerByEmail)
				r.Get("/{id}", h.GetCustomer)
				r.Put("/{id}/activate", h.ActivateCustomer)
				r.Put("/{id}/deactivate", h.DeactivateCustomer)
			})

			r.Route("/staff", func(r chi.Router) {
				r.Use(managers)

				r.Post("/", h.CreateEmployee)
				r.Get("/", h.ListEmployees)
				r.Get("/employee/{employeeId}", h.GetEmployeeByEmployeeID)
				r.Get("/user/{userId}", h.GetEmployeeByUserID)
				r.Get("/department/{department}", h.EmployeesByDepartment)
				r.Get("/role/{role}", h.EmployeesByRole)
				r.Get("/{id}", h.GetEmployee)
				r.Put("/{id}", h.UpdateEmployee)
				r.Put("/{id}/deactivate", h.DeactivateEmployee)
				r.Delete("/{id}", h.DeleteEmployee)
			})

			r.Route("/menu", func(r chi.Router) {
				r.Get("/", h.SecureMenu)
				r.Get("/by-type/{type}", h.MenuByType)
				r.Get("/analytics/top-bought", h.TopBought)
				r.Get("/analytics/top-rated", h.TopRated)
				r.Get("/{id}", h.GetMenuItem)

				r.Group(func(r chi.Router) {
					r.Use(managers)

					r.Post("/", h.CreateMenuItem)
					r.Put("/{id}", h.UpdateMenuItem)
					r.Patch("/{id}/stock", h.SetMenuItemStock)
					r.Patch("/{id}/discontinue", h.DiscontinueMenuItem)
					r.Delete("/{id}", h.DeleteMenuItem)
				})
			})

			r.Route("/promotions", func(r chi.Router) {
				r.Get("/", h.ListPromotions)
				r.Get("/code/{code}", h.GetPromotionByCode)
				r.Get("/{id}", h.GetPromotion)
				r.Get("/{id}/quote", h.QuotePromotion)

				r.Group(func(r chi.Router) {
					r.Use(managers)

					r.Post("/", h.CreatePromotion)
					r.Put("/{id}/activate", h.ActivatePromotion)
					r.Put("/{id}/deactivate", h.DeactivatePromotion)
					r.Post("/{id}/menu-items", h.LinkPromotionMenuItems)
				})
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", h.CreateOrder)
				r.Get("/my", h.MyOrders)
				r.Get("/number/{orderNumber}", h.GetOrderByNumber)
				r.Get("/{id}", h.GetOrder)
				r.Post("/{id}/items", h.AddOrderItem)

				r.Group(func(r chi.Router) {
					r.Use(staffOnly)

					r.Get("/", h.ListOrders)
					r.Patch("/{id}/status", h.UpdateOrderStatus)
					r.Put("/{id}/assign", h.AssignOrder)
				})
			})

			r.Route("/purchase-history", func(r chi.Router) {
				r.With(staffOnly).Get("/", h.ListHistory)
				r.Get("/date-range", h.HistoryDateRange)
				r.Get("/order/{orderNumber}", h.HistoryByOrderNumber)
				r.Get("/customer/{customerId}", h.CustomerHistory)
				r.Get("/customer/{customerId}/paginated", h.PageCustomerHistory)
				r.Get("/customer/{customerId}/date-range", h.CustomerHistoryDateRange)
				r.Get("/customer/{customerId}/stats/count", h.CustomerPurchaseCount)
				r.Get("/customer/{customerId}/stats/total-spent", h.CustomerTotalSpent)
				r.Get("/{id}", h.GetHistory)
			})

			r.Route("/worklogs", func(r chi.Router) {
				r.Use(staffOnly)

				r.Post("/clock-in", h.ClockIn)
				r.Post("/clock-out", h.ClockOut)
				r.Get("/active", h.ActiveWorkLog)
				r.Get("/me", h.MyWorkLogs)
				r.With(managers).Get("/user/{userId}", h.UserWorkLogs)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: http.StatusText(http.StatusNotFound)})
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: http.StatusText(http.StatusMethodNotAllowed)})
	})

	return r
}

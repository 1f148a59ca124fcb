package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"fabricstore/internal/domain"
)

type RouterOptions struct {
	// UploadsDir is served under /uploads/ when set (local blob storage).
	UploadsDir string
	Limiter    *RateLimiter
	Log        logrus.FieldLogger
}

func NewRouter(handler *Handler, opts RouterOptions) http.Handler {
	log := opts.Log
	if log == nil {
		log = handler.log
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(Timeout)
	r.Use(CORS)

	r.Get("/healthz", handler.Health)
	if opts.UploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(opts.UploadsDir))))
	}

	admin := RequireRoles(domain.RoleAdmin)
	staff := RequireRoles(domain.RoleAdmin, domain.RoleAccountant, domain.RoleWarehouse)
	finance := RequireRoles(domain.RoleAdmin, domain.RoleAccountant)
	stock := RequireRoles(domain.RoleAdmin, domain.RoleWarehouse)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(opts.Limiter.Limit("login")).Post("/auth/login", handler.Login)
		r.With(opts.Limiter.Limit("customer_login")).Post("/customer/auth/login", handler.CustomerLogin)
		r.With(opts.Limiter.Limit("public_cart")).Post("/carts/public/submit", handler.SubmitPublicCart)

		r.Group(func(r chi.Router) {
			r.Use(handler.Authenticate)

			r.Get("/auth/me", handler.Me)
			r.Route("/users", func(r chi.Router) {
				r.Use(admin)
				r.Get("/", handler.ListUsers)
				r.Post("/", handler.CreateUser)
				r.Get("/{id}", handler.GetUser)
				r.Patch("/{id}", handler.UpdateUser)
				r.Delete("/{id}", handler.DeleteUser)
			})

			// customers see only visible, available products
			r.Get("/products", handler.ListProducts)
			r.Get("/products/{id}", handler.GetProduct)
			r.Group(func(r chi.Router) {
				r.Use(stock)
				r.Post("/products", handler.CreateProduct)
				r.Patch("/products/{id}", handler.UpdateProduct)
				r.Post("/products/{id}/images", handler.AddProductImage)
				r.Post("/products/import-excel", handler.ImportProducts)
				r.Post("/inventory/transactions", handler.RecordTransaction)
			})
			r.With(admin).Delete("/products/{id}", handler.DeleteProduct)

			r.Group(func(r chi.Router) {
				r.Use(staff)
				r.Get("/inventory/transactions", handler.ListTransactions)
				r.Get("/inventory/products/{id}/quantity", handler.ProductQuantity)
				r.Get("/customers", handler.ListCustomers)
				r.Get("/customers/{id}", handler.GetCustomer)

				r.Get("/invoices", handler.ListInvoices)
				r.Post("/invoices", handler.CreateInvoice)
				r.Get("/invoices/{id}", handler.GetInvoice)
				r.Post("/invoices/{id}/reserve", handler.ReserveInvoice)
				r.Post("/invoices/{id}/approve", handler.ApproveInvoice)
				r.Post("/invoices/{id}/ship", handler.ShipInvoice)
				r.Post("/invoices/{id}/deliver", handler.DeliverInvoice)
				r.Post("/invoices/{id}/cancel", handler.CancelInvoice)
				r.Post("/invoices/{id}/attachments", handler.AddInvoiceAttachment)
				r.Get("/invoices/{id}/export", handler.ExportInvoice)
			})

			r.Group(func(r chi.Router) {
				r.Use(finance)
				r.Post("/customers", handler.CreateCustomer)
				r.Patch("/customers/{id}", handler.UpdateCustomer)
				r.Post("/customers/{id}/bank-accounts", handler.AddBankAccount)
				r.Delete("/customers/{id}/bank-accounts/{accountID}", handler.DeleteBankAccount)
				r.Get("/customers/{id}/balance", handler.GetBalance)
				r.Post("/customers/{id}/balance/adjust", handler.AdjustBalance)
				r.Put("/customers/{id}/balance", handler.SetBalance)

				r.Get("/checks", handler.ListChecks)
				r.Post("/checks", handler.CreateCheck)
				r.Get("/checks/{id}", handler.GetCheck)
				r.Patch("/checks/{id}", handler.UpdateCheck)
				r.Patch("/checks/{id}/status", handler.SetCheckStatus)
				r.Post("/checks/{id}/attachments", handler.AddCheckAttachment)

				r.Get("/carts", handler.ListCarts)
				r.Get("/carts/stats", handler.CartStats)
				r.Get("/carts/{id}", handler.GetCart)
				r.Patch("/carts/{id}/status", handler.UpdateCartStatus)
				r.Delete("/carts/{id}", handler.DeleteCart)
			})
			r.With(admin).Delete("/customers/{id}", handler.DeleteCustomer)
			r.With(admin).Delete("/checks/{id}", handler.DeleteCheck)

			r.Route("/customer", func(r chi.Router) {
				r.Use(RequireRoles(domain.RoleCustomer))
				r.Get("/me", handler.Me)
				r.Get("/balance", handler.CustomerBalance)
				r.Get("/invoices", handler.ListInvoices)
				r.Get("/invoices/{id}", handler.GetInvoice)
				r.Get("/checks", handler.ListChecks)
				r.Get("/checks/{id}", handler.GetCheck)
				r.Get("/cart", handler.GetCustomerCart)
				r.Post("/cart/items", handler.AddCartItem)
				r.Put("/cart/items/{itemID}", handler.UpdateCartItem)
				r.Delete("/cart/items/{itemID}", handler.RemoveCartItem)
				r.Delete("/cart", handler.ClearCart)
				r.Post("/cart/checkout", handler.CheckoutCart)
			})
		})
	})

	return r
}

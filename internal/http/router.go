package http

import (
	"net/http"
	"time"

	"github.com/SrFlag/Melos-Company/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
}

type Handlers struct {
	Cart     *CartHandler
	Products *ProductHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
	Auth     *AuthHandler
}

// NewRouter wires the storefront and admin API.
func NewRouter(cfg RouterConfig, h Handlers, authn *auth.Authenticator, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", SessionHeader},
		ExposedHeaders:   []string{SessionHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", h.Products.List)
		r.Get("/products/{slug}", h.Products.GetBySlug)
		r.Get("/address/{cep}", h.Checkout.Address)
		r.Get("/orders/{id}/whatsapp", h.Orders.FollowUp)

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.GetCart)
				r.Delete("/", h.Cart.ClearCart)
				r.Post("/items", h.Cart.AddItem)
				r.Delete("/items/{product_id}", h.Cart.RemoveItem)
				r.Post("/panel/{action}", h.Cart.Panel)
			})

			r.Post("/checkout/attempts", h.Checkout.CreateAttempt)
			r.Get("/checkout/attempts/{key}", h.Checkout.GetAttempt)
			r.Post("/checkout", h.Checkout.Submit)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.Auth.Login)

			r.Group(func(r chi.Router) {
				r.Use(AdminMiddleware(authn))

				r.Post("/products", h.Products.Create)
				r.Put("/products/{id}", h.Products.Update)
				r.Delete("/products/{id}", h.Products.Delete)
				r.Post("/images", h.Products.UploadImage)
				r.Get("/orders", h.Orders.List)
				r.Patch("/orders/{id}/status", h.Orders.UpdateStatus)
			})
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}

package routes

import (
	adminapi "clinic-api/internal/api/admin"
	authapi "clinic-api/internal/api/auth"
	"clinic-api/internal/api/billing"
	"clinic-api/internal/api/health"
	stripewebhooks "clinic-api/internal/api/stripewebhook"
	usersapi "clinic-api/internal/api/users"
	"clinic-api/internal/app/http/middleware"
	"clinic-api/internal/domain/users"
	"clinic-api/internal/infra/metrics"

	"github.com/gin-gonic/gin"
)

// Dependencies are built once at startup and shared by every request.
type Dependencies struct {
	Users   users.Repository
	Tokens  middleware.TokenVerifier
	Metrics *metrics.Metrics

	Auth    *authapi.Handler
	Google  *authapi.GoogleHandler // nil when Google sign-in is not configured
	Profile *usersapi.Handler
	Admin   *adminapi.Handler
	Billing *billing.Handler
	Webhook *stripewebhooks.Handler
	Health  *health.Handler
}

func RegisterRoutes(r *gin.Engine, d Dependencies) {
	api := r.Group("/api")

	api.GET("/health", d.Health.Check)

	// raw body, verified by signature; must stay outside SanitizeJSON
	api.POST("/subscriptions/webhook", d.Webhook.StripeWebhook)

	protect := middleware.Protect(d.Tokens, d.Users, d.Metrics)

	public := api.Group("/users")
	public.POST("/register", middleware.SanitizeJSON(), d.Auth.Register)
	public.POST("/login", middleware.SanitizeJSON(), d.Auth.Login)
	if d.Google != nil {
		public.GET("/auth/google", d.Google.Start)
		public.GET("/auth/google/callback", d.Google.Callback)
	}

	account := api.Group("/users", protect)
	account.GET("/profile", d.Profile.GetProfile)
	account.PATCH("/profile", middleware.SanitizeJSON(), d.Profile.UpdateProfile)
	account.PATCH("/change-password", d.Auth.ChangePassword)

	admin := api.Group("/users", protect, middleware.RestrictTo(users.RoleAdmin))
	admin.GET("", d.Admin.ListUsers)
	admin.GET("/:id", d.Admin.GetUser)
	admin.PATCH("/:id/active", d.Admin.SetActive)

	subs := api.Group("/subscriptions", protect)
	subs.POST("/create", d.Billing.CreateSubscription)
	subs.POST("/cancel", d.Billing.CancelSubscription)
	subs.GET("/status", d.Billing.Status)

	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
}

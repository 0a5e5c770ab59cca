package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tienda_perfumes/internal/handlers"
	"tienda_perfumes/internal/middleware"
	"tienda_perfumes/internal/models"
)

// Deps regroupe tout ce dont le routeur a besoin. Limiter et Gatherer peuvent être nuls.
type Deps struct {
	JWTSecret          string
	Limiter            middleware.Limiter
	RateLimitPerMinute int
	Metrics            *middleware.Metrics
	Gatherer           prometheus.Gatherer

	Auth          *handlers.AuthHandler
	Checkout      *handlers.CheckoutHandler
	Orders        *handlers.OrderHandler
	Payments      *handlers.PaymentHandler
	Perfumes      *handlers.PerfumeHandler
	Notifications *handlers.NotificationHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))
	if d.Metrics != nil {
		r.Use(d.Metrics.Handler())
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	auth := middleware.AuthRequired(d.JWTSecret)
	sellers := middleware.RequireRole(models.RoleSeller, models.RoleAdmin)

	// Auth
	authGroup := r.Group("/auth", middleware.APIRateLimit(d.Limiter, "auth", d.RateLimitPerMinute))
	authGroup.POST("/register", d.Auth.Register)
	authGroup.POST("/login", d.Auth.Login)

	// Catalogue
	perfumes := r.Group("/perfumes")
	perfumes.GET("", d.Perfumes.List)
	perfumes.GET("/search", d.Perfumes.Search)
	perfumes.GET("/:id", d.Perfumes.Get)
	perfumes.POST("", auth, sellers, d.Perfumes.Create)
	perfumes.POST("/:id/images", auth, sellers, d.Perfumes.UploadImage)
	perfumes.PATCH("/:id/stock", auth, sellers, d.Perfumes.Restock)

	// Checkout
	checkoutLimit := middleware.APIRateLimit(d.Limiter, "checkout", d.RateLimitPerMinute)
	r.POST("/checkout", checkoutLimit, auth, d.Checkout.Checkout)
	r.POST("/checkout/quote", auth, d.Checkout.Quote)

	// Commandes : :ref est le numéro de commande en lecture et l'identifiant pour les actions
	orders := r.Group("/orders", auth)
	orders.GET("", d.Orders.List)
	orders.GET("/:ref", d.Orders.GetByNumber)
	orders.POST("/:ref/cancel", d.Orders.Cancel)
	orders.PATCH("/:ref/status", sellers, d.Orders.UpdateStatus)

	// Paiements : simulate et status sont les URLs de redirection du paiement simulé
	payments := r.Group("/payments", middleware.APIRateLimit(d.Limiter, "payments", d.RateLimitPerMinute))
	payments.GET("/simulate-payment", d.Payments.Simulate)
	payments.GET("/status/:paymentId", d.Payments.Status)
	payments.POST("/confirm-payment", auth, d.Payments.Confirm)

	// Notifications
	notifications := r.Group("/notifications", auth)
	notifications.GET("", d.Notifications.List)
	notifications.GET("/unread-count", d.Notifications.UnreadCount)
	notifications.PATCH("/read-all", d.Notifications.MarkAllRead)
	notifications.PATCH("/:id/read", d.Notifications.MarkRead)
	r.GET("/ws/notifications", auth, d.Notifications.Stream)
}

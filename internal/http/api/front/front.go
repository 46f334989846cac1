// Package front registers the public client API.
package front

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/glowlens/glowlens-api/internal/auth"
	"github.com/glowlens/glowlens-api/internal/catalog"
	"github.com/glowlens/glowlens-api/internal/entitlement"
	"github.com/glowlens/glowlens-api/internal/generation"
	handlers "github.com/glowlens/glowlens-api/internal/http/api/front/handlers"
	"github.com/glowlens/glowlens-api/internal/payments"
	"github.com/glowlens/glowlens-api/internal/ratelimit"
)

// RegisterFrontRoutes registers the public routes, middleware, and handlers.
func RegisterFrontRoutes(r *gin.Engine, verifier *auth.Verifier, ledger *entitlement.Service, paymentSvc *payments.Service, generationSvc *generation.Service, catalogs *catalog.Store, limiter *ratelimit.Manager) {
	if r == nil {
		return
	}

	api := r.Group("/api")

	healthHandler := handlers.NewHealthHandler()
	api.GET("/health", healthHandler.Health)

	promptHandler := handlers.NewPromptHandler(catalogs)
	api.GET("/prompts", promptHandler.List)
	api.GET("/prompts/category/:category", promptHandler.ByCategory)

	paymentHandler := handlers.NewPaymentHandler(paymentSvc, catalogs)
	api.GET("/payment/packages", paymentHandler.Packages)
	api.POST("/webhook/stripe", paymentHandler.Webhook)

	authed := api.Group("")
	authed.Use(auth.Middleware(verifier, ledger))

	profileHandler := handlers.NewProfileHandler(ledger)
	authed.GET("/user/profile", profileHandler.Get)

	generateHandler := handlers.NewGenerateHandler(generationSvc)
	authed.GET("/user/generations", generateHandler.History)
	authed.POST("/generate-image", rateLimitMiddleware(limiter), generateHandler.Generate)

	authed.POST("/payment/checkout-session", paymentHandler.CreateCheckoutSession)
	authed.GET("/payment/status/:sessionId", paymentHandler.Status)
}

// rateLimitMiddleware applies the per-user fixed-window limit to the route.
// A zero configured limit disables the check; limiter failures fail open.
func rateLimitMiddleware(limiter *ratelimit.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			c.Next()
			return
		}
		limit := limiter.Limit()
		if limit <= 0 {
			c.Next()
			return
		}

		result, errAllow := limiter.Allow(c.Request.Context(), ratelimit.KeyForUser(userID), limit)
		if errAllow != nil {
			log.WithError(errAllow).Warn("rate limit check failed")
			c.Next()
			return
		}
		if !result.Allowed {
			resetSeconds := int(math.Ceil(time.Until(result.Reset).Seconds()))
			if resetSeconds < 0 {
				resetSeconds = 0
			}
			c.Header("Retry-After", strconv.Itoa(resetSeconds))
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Next()
	}
}

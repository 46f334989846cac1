// Package admin registers the operations console API: support staff
// authentication plus read and adjustment endpoints over the entitlement
// ledger, payment transactions, generation records, and runtime settings.
package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/glowlens/glowlens-api/internal/config"
	"github.com/glowlens/glowlens-api/internal/entitlement"
	handlers "github.com/glowlens/glowlens-api/internal/http/api/admin/handlers"
	"github.com/glowlens/glowlens-api/internal/models"
	"github.com/glowlens/glowlens-api/internal/security"
	"github.com/glowlens/glowlens-api/internal/settings"
)

// RegisterAdminRoutes registers ops console routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, ledger *entitlement.Service, runtime *settings.Store) {
	if r == nil || db == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	opsGroup := r.Group("/v0/ops")

	authHandler := handlers.NewAuthHandler(db, jwtCfg)
	opsGroup.POST("/login", authHandler.Login)

	authed := opsGroup.Group("")
	authed.Use(opsAuthMiddleware(db, jwtCfg))

	userHandler := handlers.NewUserHandler(db, ledger)
	authed.GET("/users", userHandler.List)
	authed.GET("/users/:id", userHandler.Get)
	authed.POST("/users/:id/credits", userHandler.AdjustCredits)

	transactionHandler := handlers.NewTransactionHandler(db)
	authed.GET("/transactions", transactionHandler.List)
	authed.GET("/transactions/:id", transactionHandler.Get)

	generationHandler := handlers.NewGenerationHandler(db)
	authed.GET("/generations", generationHandler.List)

	settingHandler := handlers.NewSettingHandler(db, runtime)
	authed.GET("/settings", settingHandler.List)
	authed.GET("/settings/:key", settingHandler.Get)
	authed.PUT("/settings/:key", settingHandler.Update)
}

// opsAuthMiddleware validates ops session tokens and loads admin context.
func opsAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if !admin.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin disabled"})
			return
		}

		c.Set("adminID", admin.ID)
		c.Set("adminUsername", admin.Username)
		c.Next()
	}
}

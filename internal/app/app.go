// Package app wires the database, catalog, providers, and HTTP surfaces into
// a runnable API server.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/glowlens/glowlens-api/internal/auth"
	"github.com/glowlens/glowlens-api/internal/catalog"
	"github.com/glowlens/glowlens-api/internal/config"
	"github.com/glowlens/glowlens-api/internal/db"
	"github.com/glowlens/glowlens-api/internal/entitlement"
	"github.com/glowlens/glowlens-api/internal/generation"
	"github.com/glowlens/glowlens-api/internal/http/api/admin"
	"github.com/glowlens/glowlens-api/internal/http/api/front"
	"github.com/glowlens/glowlens-api/internal/payments"
	"github.com/glowlens/glowlens-api/internal/ratelimit"
	"github.com/glowlens/glowlens-api/internal/security"
	internalsettings "github.com/glowlens/glowlens-api/internal/settings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// settingsRefreshInterval controls how often the runtime settings snapshot is
// reloaded from the database.
const settingsRefreshInterval = time.Minute

// rateLimitWindow is the fixed window for the per-user generation limit.
const rateLimitWindow = time.Minute

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the API server with database-backed components and blocks
// until the context is cancelled or the listener fails.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errSeed := EnsureInitialAdmin(conn); errSeed != nil {
		return errSeed
	}

	serverCfg, errServer := config.LoadServerConfig(configPath)
	if errServer != nil {
		return errServer
	}
	if serverCfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	jwtCfg, errJWT := config.LoadJWTConfig(configPath)
	if errJWT != nil {
		return errJWT
	}
	if strings.TrimSpace(jwtCfg.Secret) == "" {
		generated, errSecret := security.GenerateRandomString(32)
		if errSecret != nil {
			return fmt.Errorf("generate jwt secret: %w", errSecret)
		}
		jwtCfg.Secret = generated
		log.Warn("jwt secret not configured; generated an ephemeral one, ops sessions will not survive restarts")
	}

	identityCfg, errIdentity := config.LoadIdentityConfig(configPath)
	if errIdentity != nil {
		return errIdentity
	}
	verifier, errVerifier := auth.NewVerifier(identityCfg)
	if errVerifier != nil {
		return fmt.Errorf("build token verifier: %w", errVerifier)
	}

	stripeCfg, errStripe := config.LoadStripeConfig(configPath)
	if errStripe != nil {
		return errStripe
	}
	paymentProvider, errProvider := payments.NewStripeProvider(stripeCfg)
	if errProvider != nil {
		return fmt.Errorf("build stripe provider: %w", errProvider)
	}

	generationCfg, errGeneration := config.LoadGenerationConfig(configPath)
	if errGeneration != nil {
		return errGeneration
	}
	imageProvider, errImage := generation.NewGeminiProvider(generationCfg)
	if errImage != nil {
		return fmt.Errorf("build generation provider: %w", errImage)
	}

	entitlementCfg, errEntitlement := config.LoadEntitlementConfig(configPath)
	if errEntitlement != nil {
		return errEntitlement
	}
	ledger := entitlement.NewService(conn, entitlementCfg)

	catalogStore, catalogWatcher, errCatalog := buildCatalog(configPath)
	if errCatalog != nil {
		return errCatalog
	}
	catalogWatcher.Start(ctx)
	defer catalogWatcher.Stop()

	paymentSvc := payments.NewService(conn, paymentProvider, catalogStore, ledger)
	generationSvc := generation.NewService(conn, catalogStore, ledger, imageProvider)

	runtime := internalsettings.NewStore(conn)
	if errRefresh := runtime.Refresh(ctx); errRefresh != nil {
		log.WithError(errRefresh).Warn("settings: initial refresh failed")
	}
	go runtime.Run(ctx, settingsRefreshInterval)

	limiter := ratelimit.NewManager(ratelimit.ConfigLoader(runtime), rateLimitWindow, nil, nil)

	if !serverCfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware(serverCfg.CORSOrigins))
	engine.Use(requestLogMiddleware())

	front.RegisterFrontRoutes(engine, verifier, ledger, paymentSvc, generationSvc, catalogStore, limiter)
	admin.RegisterAdminRoutes(engine, conn, jwtCfg, ledger, runtime)

	addr := fmt.Sprintf("%s:%d", serverCfg.Host, serverCfg.Port)
	log.Infof("starting api server on %s (config=%s)", addr, configPath)

	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
	}()

	if errListen := srv.ListenAndServe(); errListen != nil && errListen != http.ErrServerClosed {
		return errListen
	}
	return nil
}

// buildCatalog loads the catalog override file when configured and falls back
// to the built-in snapshot. The returned watcher is a no-op without a path.
func buildCatalog(configPath string) (*catalog.Store, *catalog.Watcher, error) {
	catalogPath, errPath := config.LoadCatalogPath(configPath)
	if errPath != nil {
		return nil, nil, errPath
	}

	snapshot := catalog.DefaultSnapshot()
	if catalogPath != "" {
		fileSnapshot, errLoad := catalog.LoadFile(catalogPath)
		if errLoad != nil {
			log.WithError(errLoad).Warnf("catalog file %s unusable, serving built-in catalog", catalogPath)
		} else {
			snapshot = fileSnapshot
		}
	}

	store := catalog.NewStore(snapshot)
	return store, catalog.NewWatcher(catalogPath, store), nil
}

// corsMiddleware builds the CORS policy from the configured origins. An empty
// list allows any origin.
func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Stripe-Signature"},
		MaxAge:       12 * time.Hour,
	})
}

// requestLogMiddleware emits one debug line per handled request.
func requestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("http request")
	}
}

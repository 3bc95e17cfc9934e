package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/auth"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/authz"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/config"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/handler"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/middleware"
	"github.com/Maldo155/gta-mlo-map-sub001/pkg/response"
)

// Deps carries everything the router wires together
type Deps struct {
	Config   *config.Config
	JWT      *auth.JWTManager
	Enforcer *authz.Enforcer
	Claims   *handler.ClaimHandler
	Listings *handler.ListingHandler
	MLOs     *handler.MLOHandler
	Map      *handler.MapHandler
	Storage  *handler.StorageHandler
	// Ping checks the database for /health; nil skips the check.
	Ping func(ctx context.Context) error
}

// SetupRouter 设置路由
func SetupRouter(d Deps) *gin.Engine {
	sec := d.Config.Security

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(d.Config.Server.CORSOrigins))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		if d.Ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ping(ctx); err != nil {
				response.Error(c, http.StatusServiceUnavailable, "Database unavailable", err)
				return
			}
		}
		response.Success(c, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/storage/*key", d.Storage.Serve)

	moderate := func(object, action string) gin.HandlerFunc {
		return middleware.RequirePermission(d.Enforcer, object, action)
	}

	// API 路由组
	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(sec.RateLimitReqs, sec.RateLimitWindow))
	api.Use(middleware.Authenticate(d.JWT))
	{
		mapGroup := api.Group("/map")
		{
			mapGroup.GET("/config", d.Map.Config)
			mapGroup.GET("/search", d.Map.Search)
			mapGroup.POST("/locate", d.Map.Locate)
			mapGroup.GET("/markers", d.Map.Markers)
			mapGroup.GET("/markers.geojson", d.Map.MarkersGeoJSON)
			mapGroup.GET("/nearby", d.Map.Nearby)
		}

		listings := api.Group("/listings")
		{
			listings.GET("", d.Listings.List)
			listings.GET("/:id", d.Listings.Get)
			listings.GET("/:id/status", d.Listings.ServerStatus)
			listings.POST("", middleware.RequireAuth(), d.Listings.Create)
			listings.PUT("/:id", middleware.RequireAuth(), d.Listings.Update)
			listings.POST("/:id/banner", middleware.RequireAuth(), d.Listings.UploadBanner)
			listings.PATCH("/:id/status", moderate(authz.ObjectListings, authz.ActionModerate), d.Listings.SetStatus)
			listings.DELETE("/:id", moderate(authz.ObjectListings, authz.ActionDelete), d.Listings.Delete)

			claim := listings.Group("/:id/claim")
			{
				claim.POST("/request-pin",
					middleware.RequireAuth(),
					middleware.RateLimitByUser(sec.ClaimRateReqs, sec.ClaimRateWindow),
					d.Claims.RequestPin)
				claim.POST("/verify",
					middleware.RequireAuth(),
					middleware.RateLimitByUser(sec.ClaimRateReqs*4, sec.ClaimRateWindow),
					d.Claims.VerifyPin)
				claim.POST("/reset", moderate(authz.ObjectClaims, authz.ActionReset), d.Claims.Reset)
			}
		}

		mlos := api.Group("/mlos")
		{
			mlos.GET("", d.MLOs.List)
			mlos.GET("/:id", d.MLOs.Get)
			mlos.POST("", middleware.RequireAuth(), d.MLOs.Create)
			mlos.POST("/:id/image", middleware.RequireAuth(), d.MLOs.UploadImage)
			mlos.PATCH("/:id/status", moderate(authz.ObjectMLOs, authz.ActionModerate), d.MLOs.SetStatus)
			mlos.DELETE("/:id", moderate(authz.ObjectMLOs, authz.ActionDelete), d.MLOs.Delete)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Route not found")
	})

	return r
}

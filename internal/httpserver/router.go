package httpserver

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-checkout/internal/checkout"
)

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, svc *checkout.Service, corsOrigins []string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())

	if len(corsOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     corsOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &sessionHandler{svc: svc, logger: logger}

	sessions := router.Group("/checkout/sessions")
	{
		sessions.POST("", h.open)
		sessions.GET("/:id", h.get)

		sessions.POST("/:id/lines", h.addLine)
		sessions.PATCH("/:id/lines/:lineId", h.updateLine)
		sessions.DELETE("/:id/lines/:lineId", h.removeLine)
		sessions.DELETE("/:id/lines", h.clearLines)

		sessions.PUT("/:id/identity", h.setIdentity)
		sessions.PUT("/:id/address", h.setAddress)
		sessions.POST("/:id/address/lookup", h.lookupAddress)

		sessions.POST("/:id/shipping/quotes", h.requestQuotes)
		sessions.PUT("/:id/shipping/selection", h.selectQuote)

		sessions.POST("/:id/coupon", h.applyCoupon)
		sessions.DELETE("/:id/coupon", h.removeCoupon)

		sessions.POST("/:id/pay/instant", h.payInstant)
		sessions.POST("/:id/pay/card", h.payCard)
	}

	return router
}

package httpgin

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	redisrepo "github.com/kirinyoku/tix-ledger/internal/repository/redis"
	"github.com/kirinyoku/tix-ledger/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// NewRouter builds the HTTP API. idem and limiter may be nil when redis is
// disabled; replays are then executed again and rejected by the ledger.
func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	limiter *redisrepo.SlidingWindowLimiter,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.POST("/transactions", handleSubmitTransaction(svcs, idem, limiter, logger))

		v1.GET("/catalog", handleGetCatalog(svcs))
		v1.GET("/events/:id", handleGetEvent(svcs))
		v1.GET("/events/:id/tickets/:owner", handleGetTicket(svcs))
	}

	return r
}

// @Summary  Get catalog
// @Tags     records
// @Produce  json
// @Success  200  {object}  query.CatalogView
// @Failure  404  {object}  ErrorResponse "not initialized"
// @Router   /v1/catalog [get]
func handleGetCatalog(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := svcs.Query.Catalog(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, v, "public, max-age=5", true)
	}
}

// @Summary  Get event
// @Tags     records
// @Produce  json
// @Param    id  path  int  true  "Event ID"
// @Success  200  {object}  query.EventView
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /v1/events/{id} [get]
func handleGetEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUint32Param(c, "id")
		if !ok {
			return
		}
		e, err := svcs.Query.Event(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, e, "public, max-age=5", true)
	}
}

// @Summary  Get ticket
// @Tags     records
// @Produce  json
// @Param    id     path  int     true  "Event ID"
// @Param    owner  path  string  true  "Owner key (hex)"
// @Success  200  {object}  query.TicketView
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /v1/events/{id}/tickets/{owner} [get]
func handleGetTicket(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUint32Param(c, "id")
		if !ok {
			return
		}
		owner, err := domain.ParseKey(c.Param("owner"))
		if err != nil {
			badRequest(c, "invalid owner")
			return
		}
		t, err := svcs.Query.Ticket(c.Request.Context(), eventID, owner)
		if err != nil {
			respondErr(c, err)
			return
		}
		// Tickets flip to used, so clients must revalidate.
		writeJSONWithCache(c, http.StatusOK, t, "no-cache", true)
	}
}

// --- Helpers ---

func parseUint32Param(c *gin.Context, name string) (uint32, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint32(v), true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: "BadRequest"})
}

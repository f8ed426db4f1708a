package httpgin

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/tix-ledger/internal/codec"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/identity"
	redisrepo "github.com/kirinyoku/tix-ledger/internal/repository/redis"
	"github.com/kirinyoku/tix-ledger/internal/service"
)

const (
	maxEnvelopeBytes = 64 << 10
	idemLockTTL      = 60 * time.Second
	headerReplay     = "Idempotent-Replay"
)

// @Summary      Submit a signed transaction
// @Description  Body is a CBOR envelope carrying one instruction and its Ed25519 signature.
// @Tags         transactions
// @Accept       application/cbor
// @Produce      json
// @Success      200 {object} TransactionResponse "ticket used"
// @Success      201 {object} TransactionResponse "record created"
// @Header       200,201 {string} Idempotent-Replay "true when replayed"
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "rejected / in progress"
// @Failure      413 {object} ErrorResponse
// @Failure      415 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse "rate limited"
// @Failure      503 {object} ErrorResponse "redis unavailable"
// @Router       /v1/transactions [post]
func handleSubmitTransaction(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	limiter *redisrepo.SlidingWindowLimiter,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if limiter != nil {
			d, err := limiter.Allow(ctx, "ip:"+c.ClientIP())
			if err != nil {
				unavailable(c, logger, "rate limiter", err)
				return
			}
			if !d.Allowed {
				c.Header("Retry-After", strconv.Itoa(int(max(1, d.RetryAfter.Round(time.Second)/time.Second))))
				c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited", Code: "RateLimited"})
				return
			}
		}

		if ct := c.ContentType(); ct != codec.ContentType {
			c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{
				Error: "content type must be " + codec.ContentType,
				Code:  "UnsupportedMediaType",
			})
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxEnvelopeBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "envelope too large", Code: "TooLarge"})
				return
			}
			badRequest(c, "read body")
			return
		}

		env, err := identity.DecodeEnvelope(body)
		if err != nil {
			respondErr(c, err)
			return
		}

		instr, call, err := identity.Open(env)
		if err != nil {
			respondErr(c, err)
			return
		}

		digest := env.Digest()
		c.Header("X-Transaction-Digest", digest)

		if idem != nil {
			res, ok, err := idem.GetResult(ctx, digest)
			if err != nil {
				unavailable(c, logger, "replay store", err)
				return
			}
			if ok {
				replay(c, res)
				return
			}

			locked, err := idem.AcquireLock(ctx, digest, idemLockTTL)
			if err != nil {
				unavailable(c, logger, "replay store", err)
				return
			}
			if !locked {
				res, ok, err := idem.GetResult(ctx, digest)
				if err != nil {
					unavailable(c, logger, "replay store", err)
					return
				}
				if ok {
					replay(c, res)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "transaction in progress", Code: "InProgress"})
				return
			}
		}

		result, err := svcs.Ledger.Dispatch(ctx, call, instr)
		if err != nil {
			if idem != nil {
				if err := idem.Release(ctx, digest); err != nil {
					logger.Warn("releasing transaction lock failed", "digest", digest, "error", err)
				}
			}
			respondErr(c, err)
			return
		}

		status := http.StatusCreated
		if result.Op == domain.OpUseTicket {
			status = http.StatusOK
		}

		resp := TransactionResponse{Digest: digest, Result: result}
		b, err := json.Marshal(resp)
		if err != nil {
			respondErr(c, err)
			return
		}

		if idem != nil {
			if err := idem.SaveResult(ctx, digest, redisrepo.StoredResponse{Status: status, Body: b}); err != nil {
				logger.Warn("saving transaction result failed", "digest", digest, "error", err)
			}
		}

		c.Data(status, "application/json; charset=utf-8", b)
	}
}

func replay(c *gin.Context, res redisrepo.StoredResponse) {
	c.Header(headerReplay, "true")
	c.Data(res.Status, "application/json; charset=utf-8", res.Body)
}

// unavailable refuses the transaction when redis cannot be consulted.
// Without the replay store a repeated create_event would run twice.
func unavailable(c *gin.Context, logger *slog.Logger, what string, err error) {
	logger.Error(what+" unavailable", "error", err)
	c.Header("Retry-After", "1")
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: what + " unavailable", Code: "Unavailable"})
}

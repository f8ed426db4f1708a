package httpgin

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/tix-ledger/internal/address"
	"github.com/kirinyoku/tix-ledger/internal/clock"
	"github.com/kirinyoku/tix-ledger/internal/codec"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/identity"
	"github.com/kirinyoku/tix-ledger/internal/repository/memory"
	redisrepo "github.com/kirinyoku/tix-ledger/internal/repository/redis"
	"github.com/kirinyoku/tix-ledger/internal/service"
	"github.com/kirinyoku/tix-ledger/internal/service/ledger"
	"github.com/kirinyoku/tix-ledger/internal/service/query"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2026, 5, 1, 18, 30, 0, 0, time.UTC)

type signer struct {
	private ed25519.PrivateKey
	key     domain.Key
	nonce   uint64
}

func newSigner(t *testing.T) *signer {
	t.Helper()

	public, private, err := identity.GenerateKeypair()
	require.NoError(t, err)
	k, err := identity.KeyOf(public)
	require.NoError(t, err)

	return &signer{private: private, key: k}
}

func (s *signer) envelope(t *testing.T, instr domain.Instruction) []byte {
	t.Helper()

	s.nonce++
	instr.Nonce = s.nonce

	env, err := identity.Sign(s.private, instr)
	require.NoError(t, err)
	b, err := env.Encode()
	require.NoError(t, err)
	return b
}

type testAPI struct {
	router *gin.Engine
	mr     *miniredis.Miniredis
	logs   *bytes.Buffer
}

func newTestAPI(t *testing.T, withRedis bool, rateLimit int) *testAPI {
	t.Helper()

	store := memory.New()
	clk := clock.NewFixed(testNow)
	api := &testAPI{logs: &bytes.Buffer{}}
	logger := slog.New(slog.NewTextHandler(api.logs, nil))

	var (
		cache   *redisrepo.Cache
		pubsub  *redisrepo.RecordsPubSub
		idem    *redisrepo.IdempotencyStore
		limiter *redisrepo.SlidingWindowLimiter
	)
	if withRedis {
		api.mr = miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: api.mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })

		cache = redisrepo.New(rdb)
		pubsub = redisrepo.NewRecordsPubSub(rdb, clk)
		idem = redisrepo.NewIdempotencyStore(rdb, time.Hour)
		if rateLimit > 0 {
			limiter = redisrepo.NewSlidingWindowLimiter(rdb, "tx", rateLimit, time.Minute, clk)
		}
	}

	svcs := service.NewServices(store, cache, pubsub, service.Config{
		Ledger: ledger.Options{Clock: clk, Logger: logger},
		Query:  query.Config{},
	})
	api.router = NewRouter(svcs, idem, limiter, logger)

	return api
}

func (a *testAPI) submit(t *testing.T, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v1/transactions", bytes.NewReader(body))
	req.Header.Set("Content-Type", codec.ContentType)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) get(t *testing.T, path string, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var e ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func decodeTx(t *testing.T, w *httptest.ResponseRecorder) TransactionResponse {
	t.Helper()

	var r TransactionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	return r
}

func TestTransactionsScenario(t *testing.T) {
	api := newTestAPI(t, false, 0)
	admin, alice, bob, carol := newSigner(t), newSigner(t), newSigner(t), newSigner(t)

	w := api.submit(t, admin.envelope(t, domain.Instruction{Op: domain.OpInitialize}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, address.Catalog().String(), decodeTx(t, w).Result.Address)

	w = api.submit(t, admin.envelope(t, domain.Instruction{Op: domain.OpInitialize}))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "AlreadyInitialized", decodeError(t, w).Code)

	w = api.submit(t, admin.envelope(t, domain.Instruction{
		Op:              domain.OpCreateEvent,
		Title:           "Concert",
		Description:     "Main stage",
		MaxParticipants: 2,
		TicketPrice:     2500,
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeTx(t, w)
	require.NotNil(t, created.Result.EventID)
	assert.Equal(t, uint32(0), *created.Result.EventID)

	for _, s := range []*signer{alice, bob} {
		w = api.submit(t, s.envelope(t, domain.Instruction{Op: domain.OpBuyTicket, EventID: 0}))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = api.submit(t, carol.envelope(t, domain.Instruction{Op: domain.OpBuyTicket, EventID: 0}))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "EventFull", decodeError(t, w).Code)

	w = api.submit(t, alice.envelope(t, domain.Instruction{Op: domain.OpUseTicket, EventID: 0}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decodeTx(t, w).Result.Ticket.IsUsed)

	w = api.submit(t, alice.envelope(t, domain.Instruction{Op: domain.OpUseTicket, EventID: 0}))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "TicketAlreadyUsed", decodeError(t, w).Code)

	w = api.submit(t, carol.envelope(t, domain.Instruction{Op: domain.OpUseTicket, EventID: 0, Owner: bob.key}))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "NotTicketOwner", decodeError(t, w).Code)

	w = api.get(t, "/v1/events/0")
	require.Equal(t, http.StatusOK, w.Code)
	var event query.EventView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &event))
	assert.Equal(t, uint32(2), event.CurrentParticipants)
	assert.Zero(t, event.SeatsLeft)
	assert.Equal(t, testNow.Unix(), event.CreatedAt)

	w = api.get(t, "/v1/events/0/tickets/"+alice.key.String())
	require.Equal(t, http.StatusOK, w.Code)
	var ticket query.TicketView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ticket))
	assert.True(t, ticket.IsUsed)
	assert.Equal(t, alice.key, ticket.Owner)

	w = api.get(t, "/v1/catalog")
	require.Equal(t, http.StatusOK, w.Code)
	var catalog query.CatalogView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &catalog))
	assert.Equal(t, admin.key, catalog.Authority)
	assert.Equal(t, uint32(1), catalog.TotalEvents)
}

func TestTransactionsRejectBadEnvelopes(t *testing.T) {
	api := newTestAPI(t, false, 0)
	s := newSigner(t)

	t.Run("WrongContentType", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/transactions", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		api.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("Garbage", func(t *testing.T) {
		w := api.submit(t, []byte{0xff, 0x01, 0x02})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "MalformedEnvelope", decodeError(t, w).Code)
	})

	t.Run("TooLarge", func(t *testing.T) {
		w := api.submit(t, bytes.Repeat([]byte{0}, maxEnvelopeBytes+1))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("ForgedSigner", func(t *testing.T) {
		other := newSigner(t)
		env, err := identity.Sign(s.private, domain.Instruction{Op: domain.OpInitialize, Nonce: 1})
		require.NoError(t, err)
		env.Signer = other.key
		b, err := env.Encode()
		require.NoError(t, err)

		w := api.submit(t, b)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "BadSignature", decodeError(t, w).Code)
	})

	t.Run("FieldTooLong", func(t *testing.T) {
		w := api.submit(t, s.envelope(t, domain.Instruction{
			Op:    domain.OpCreateEvent,
			Title: strings.Repeat("x", domain.MaxTitleLen+1),
		}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		e := decodeError(t, w)
		assert.Equal(t, "FieldTooLong", e.Code)
		assert.Contains(t, e.Error, "title")
	})

	t.Run("NotInitialized", func(t *testing.T) {
		w := api.submit(t, s.envelope(t, domain.Instruction{Op: domain.OpCreateEvent, Title: "x"}))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NotInitialized", decodeError(t, w).Code)
	})
}

func TestTransactionReplayIsIdempotent(t *testing.T) {
	api := newTestAPI(t, true, 0)
	admin := newSigner(t)

	body := admin.envelope(t, domain.Instruction{Op: domain.OpInitialize})

	first := api.submit(t, body)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	assert.Empty(t, first.Header().Get(headerReplay))

	second := api.submit(t, body)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(headerReplay))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	// Another signature over the same instruction is a new transaction.
	third := api.submit(t, admin.envelope(t, domain.Instruction{Op: domain.OpInitialize}))
	assert.Equal(t, http.StatusConflict, third.Code)
}

func TestTransactionInProgressConflicts(t *testing.T) {
	api := newTestAPI(t, true, 0)
	admin := newSigner(t)

	body := admin.envelope(t, domain.Instruction{Op: domain.OpInitialize})
	env, err := identity.DecodeEnvelope(body)
	require.NoError(t, err)
	require.NoError(t, api.mr.Set(redisrepo.KeyIdempotency(env.Digest()), "LOCK"))

	w := api.submit(t, body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "InProgress", decodeError(t, w).Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRejectedTransactionReleasesLock(t *testing.T) {
	api := newTestAPI(t, true, 0)
	s := newSigner(t)

	body := s.envelope(t, domain.Instruction{Op: domain.OpBuyTicket, EventID: 3})
	w := api.submit(t, body)
	assert.Equal(t, http.StatusNotFound, w.Code)

	env, err := identity.DecodeEnvelope(body)
	require.NoError(t, err)
	assert.False(t, api.mr.Exists(redisrepo.KeyIdempotency(env.Digest())))
}

func TestTransactionsRateLimited(t *testing.T) {
	api := newTestAPI(t, true, 1)
	s := newSigner(t)

	w := api.submit(t, s.envelope(t, domain.Instruction{Op: domain.OpInitialize}))
	require.Equal(t, http.StatusCreated, w.Code)

	w = api.submit(t, s.envelope(t, domain.Instruction{Op: domain.OpInitialize}))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestTransactionsRefusedWhenRedisDown(t *testing.T) {
	tests := []struct {
		name      string
		rateLimit int
		component string
	}{
		{name: "RateLimiter", rateLimit: 5, component: "rate limiter"},
		{name: "ReplayStore", rateLimit: 0, component: "replay store"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, true, tt.rateLimit)
			s := newSigner(t)
			api.mr.Close()

			w := api.submit(t, s.envelope(t, domain.Instruction{Op: domain.OpInitialize}))
			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
			assert.Equal(t, "Unavailable", decodeError(t, w).Code)
			assert.Equal(t, "1", w.Header().Get("Retry-After"))
			assert.Contains(t, api.logs.String(), tt.component+" unavailable")

			// Nothing reached the ledger.
			w = api.get(t, "/v1/catalog")
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestGetEndpoints(t *testing.T) {
	api := newTestAPI(t, true, 0)
	admin := newSigner(t)

	w := api.get(t, "/v1/catalog")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusCreated, api.submit(t, admin.envelope(t, domain.Instruction{Op: domain.OpInitialize})).Code)

	w = api.get(t, "/v1/catalog")
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.True(t, api.mr.Exists(redisrepo.KeyCatalogView()))

	w = api.get(t, "/v1/catalog", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)

	// Creating an event invalidates the cached catalog view.
	require.Equal(t, http.StatusCreated, api.submit(t, admin.envelope(t, domain.Instruction{
		Op:              domain.OpCreateEvent,
		Title:           "Talk",
		MaxParticipants: 10,
	})).Code)
	assert.False(t, api.mr.Exists(redisrepo.KeyCatalogView()))

	w = api.get(t, "/v1/catalog", "If-None-Match", etag)
	assert.Equal(t, http.StatusOK, w.Code)

	tests := []struct {
		path string
		code int
	}{
		{"/v1/events/abc", http.StatusBadRequest},
		{"/v1/events/4294967296", http.StatusBadRequest},
		{"/v1/events/9", http.StatusNotFound},
		{"/v1/events/0/tickets/nothex", http.StatusBadRequest},
		{"/v1/events/0/tickets/" + admin.key.String(), http.StatusNotFound},
		{"/healthz", http.StatusOK},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, api.get(t, tt.path).Code, tt.path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	api := newTestAPI(t, false, 0)

	w := api.get(t, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestETagMatches(t *testing.T) {
	tag := `W/"abc"`

	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{`W/"abc"`, true},
		{`"abc"`, true},
		{`"zzz", W/"abc"`, true},
		{`"zzz"`, false},
		{"*", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, etagMatches(tt.header, tag), "If-None-Match: %s", tt.header)
	}
}

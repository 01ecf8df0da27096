package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpHandler "token-ledger/internal/adapter/http/handler"
	"token-ledger/internal/adapter/metrics"
	redisStorage "token-ledger/internal/adapter/storage/redis"
	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"
	"token-ledger/internal/ledger"
	"token-ledger/internal/service"
	"token-ledger/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerUsername = "owner"
	testPassword  = "StrongPass123!"
)

// testApp builds the full stack: real HTTP layer, middleware, services and
// Redis stores on miniredis, with in-memory principal and audit repos.
type testApp struct {
	server    *httptest.Server
	redis     *miniredis.Miniredis
	ledgerSvc *service.LedgerServiceImpl
	audit     *inMemoryAuditRepo
	owner     domain.AccountID
}

type appOptions struct {
	noRateLimit bool
}

func newTestApp(t *testing.T) *testApp {
	return newTestAppWith(t, appOptions{})
}

func newTestAppWith(t *testing.T, opts appOptions) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	log := logger.NewWithWriter("warn", io.Discard)
	m, err := metrics.New()
	require.NoError(t, err)

	owner, err := domain.NewAccountID()
	require.NoError(t, err)

	ledgerSvc := service.NewLedgerService(
		ledger.New(ledger.DefaultMetadata(), ledger.DefaultInitialSupply),
		redisStorage.NewIdempotencyCache(rdb),
		m,
		log,
	)
	require.NoError(t, ledgerSvc.Initialize(context.Background(), owner))

	principalRepo := newInMemoryPrincipalRepo()
	auditRepo := &inMemoryAuditRepo{}
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", time.Hour, "test-issuer")
	hashSvc := service.NewArgon2HashService(service.Argon2Params{MemoryKB: 1024, Iterations: 1, Threads: 1})
	authSvc := service.NewAuthService(principalRepo, hashSvc, tokenSvc)

	// The owner's login is provisioned out of band, as the principal command does.
	_, err = authSvc.Register(context.Background(), ports.RegisterRequest{
		Username:  ownerUsername,
		Password:  testPassword,
		AccountID: &owner,
	})
	require.NoError(t, err)

	auditSvc := service.NewAuditService(auditRepo, log)

	var rateStore ports.RateLimitStore
	if !opts.noRateLimit {
		rateStore = redisStorage.NewRateLimitStore(rdb)
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		AuthSvc:        authSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateStore,
		HealthCheckers: []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		AuditSvc:       auditSvc,
		HTTPMetrics:    m,
		MetricsPath:    "/metrics",
		MetricsHandler: m.Handler(),
		Mode:           "test",
		Logger:         log,
	})

	app := &testApp{
		server:    httptest.NewServer(router),
		redis:     mr,
		ledgerSvc: ledgerSvc,
		audit:     auditRepo,
		owner:     owner,
	}
	t.Cleanup(func() {
		app.server.Close()
		_ = auditSvc.Close(context.Background())
		_ = rdb.Close()
		mr.Close()
	})
	return app
}

type apiResponse struct {
	status int
	body   []byte
	header http.Header
}

// data decodes the "data" field of a success envelope into out.
func (r apiResponse) data(t *testing.T, out interface{}) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(r.body, &env), string(r.body))
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func (r apiResponse) errorCode(t *testing.T) string {
	t.Helper()
	var env struct {
		ErrorCode string `json:"error_code"`
	}
	require.NoError(t, json.Unmarshal(r.body, &env), string(r.body))
	return env.ErrorCode
}

func (a *testApp) do(t *testing.T, method, path, token, idemKey string, body interface{}) apiResponse {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return apiResponse{status: resp.StatusCode, body: raw, header: resp.Header}
}

func (a *testApp) register(t *testing.T, username string) domain.AccountID {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/api/v1/auth/register", "", "", map[string]string{
		"username": username,
		"password": testPassword,
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))

	var out struct {
		AccountID string `json:"account_id"`
	}
	resp.data(t, &out)
	id, err := domain.ParseAccountID(out.AccountID)
	require.NoError(t, err)
	return id
}

func (a *testApp) login(t *testing.T, username string) string {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/api/v1/auth/login", "", "", map[string]string{
		"username": username,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))

	var out struct {
		Token string `json:"token"`
	}
	resp.data(t, &out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func (a *testApp) balance(t *testing.T, account domain.AccountID) uint64 {
	t.Helper()
	resp := a.do(t, http.MethodGet, "/api/v1/accounts/"+account.String()+"/balance", "", "", nil)
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))

	var out struct {
		Balance uint64 `json:"balance"`
	}
	resp.data(t, &out)
	return out.Balance
}

func (a *testApp) totalSupply(t *testing.T) uint64 {
	t.Helper()
	resp := a.do(t, http.MethodGet, "/api/v1/token", "", "", nil)
	require.Equal(t, http.StatusOK, resp.status)

	var out struct {
		TotalSupply uint64 `json:"total_supply"`
	}
	resp.data(t, &out)
	return out.TotalSupply
}

// operation posts a transfer or mint and returns the success flag.
func (a *testApp) operation(t *testing.T, path, token, idemKey string, to domain.AccountID, amount uint64) bool {
	t.Helper()
	resp := a.do(t, http.MethodPost, path, token, idemKey, map[string]interface{}{
		"to":     to.String(),
		"amount": amount,
	})
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))

	var out struct {
		Success bool `json:"success"`
	}
	resp.data(t, &out)
	return out.Success
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, http.MethodGet, "/health", "", "", nil)
	assert.Equal(t, http.StatusOK, resp.status)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.body, &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_TokenInfo(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, http.MethodGet, "/api/v1/token", "", "", nil)
	require.Equal(t, http.StatusOK, resp.status)

	var info struct {
		Name        string `json:"name"`
		Symbol      string `json:"symbol"`
		Decimals    uint8  `json:"decimals"`
		TotalSupply uint64 `json:"total_supply"`
	}
	resp.data(t, &info)
	assert.Equal(t, "ICP Test Token", info.Name)
	assert.Equal(t, "ICPT", info.Symbol)
	assert.Equal(t, uint8(8), info.Decimals)
	assert.Equal(t, ledger.DefaultInitialSupply, info.TotalSupply)
}

func TestIntegration_RegisterLoginAndMe(t *testing.T) {
	app := newTestApp(t)

	alice := app.register(t, "alice")
	token := app.login(t, "alice")

	resp := app.do(t, http.MethodGet, "/api/v1/accounts/me", token, "", nil)
	require.Equal(t, http.StatusOK, resp.status)

	var me struct {
		AccountID string `json:"account_id"`
		Username  string `json:"username"`
		Balance   uint64 `json:"balance"`
		IsOwner   bool   `json:"is_owner"`
	}
	resp.data(t, &me)
	assert.Equal(t, alice.String(), me.AccountID)
	assert.Equal(t, "alice", me.Username)
	assert.Zero(t, me.Balance)
	assert.False(t, me.IsOwner)

	ownerToken := app.login(t, ownerUsername)
	resp = app.do(t, http.MethodGet, "/api/v1/accounts/me", ownerToken, "", nil)
	resp.data(t, &me)
	assert.True(t, me.IsOwner)
	assert.Equal(t, ledger.DefaultInitialSupply, me.Balance)
}

func TestIntegration_LoginWrongCredentials(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, http.MethodPost, "/api/v1/auth/login", "", "", map[string]string{
		"username": ownerUsername,
		"password": "WrongPassword!",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, "AUTH_001", resp.errorCode(t))
}

func TestIntegration_DuplicateUsername(t *testing.T) {
	app := newTestApp(t)

	app.register(t, "alice")
	resp := app.do(t, http.MethodPost, "/api/v1/auth/register", "", "", map[string]string{
		"username": "alice",
		"password": testPassword,
	})
	assert.Equal(t, http.StatusConflict, resp.status)
}

func TestIntegration_TransferFlow(t *testing.T) {
	app := newTestApp(t)

	alice := app.register(t, "alice")
	bob := app.register(t, "bob")
	ownerToken := app.login(t, ownerUsername)
	aliceToken := app.login(t, "alice")

	require.True(t, app.operation(t, "/api/v1/transfers", ownerToken, "", alice, 500))
	assert.Equal(t, uint64(500), app.balance(t, alice))
	assert.Equal(t, ledger.DefaultInitialSupply-500, app.balance(t, app.owner))

	// Overdraft is declined with a 200 and leaves balances untouched.
	assert.False(t, app.operation(t, "/api/v1/transfers", aliceToken, "", bob, 501))
	assert.Equal(t, uint64(500), app.balance(t, alice))
	assert.Zero(t, app.balance(t, bob))

	require.True(t, app.operation(t, "/api/v1/transfers", aliceToken, "", bob, 500))
	assert.Zero(t, app.balance(t, alice))
	assert.Equal(t, uint64(500), app.balance(t, bob))

	// Zero-amount and self transfers succeed without moving anything.
	assert.True(t, app.operation(t, "/api/v1/transfers", aliceToken, "", bob, 0))
	assert.True(t, app.operation(t, "/api/v1/transfers", aliceToken, "", alice, 0))

	assert.Equal(t, ledger.DefaultInitialSupply, app.totalSupply(t))
}

func TestIntegration_MintOwnerOnly(t *testing.T) {
	app := newTestApp(t)

	alice := app.register(t, "alice")
	ownerToken := app.login(t, ownerUsername)
	aliceToken := app.login(t, "alice")

	assert.False(t, app.operation(t, "/api/v1/mint", aliceToken, "", alice, 1000))
	assert.Equal(t, ledger.DefaultInitialSupply, app.totalSupply(t))

	assert.True(t, app.operation(t, "/api/v1/mint", ownerToken, "", alice, 1000))
	assert.Equal(t, uint64(1000), app.balance(t, alice))
	assert.Equal(t, ledger.DefaultInitialSupply+1000, app.totalSupply(t))
}

func TestIntegration_IdempotentRetry(t *testing.T) {
	app := newTestApp(t)

	alice := app.register(t, "alice")
	ownerToken := app.login(t, ownerUsername)

	assert.True(t, app.operation(t, "/api/v1/transfers", ownerToken, "retry-1", alice, 250))
	assert.True(t, app.operation(t, "/api/v1/transfers", ownerToken, "retry-1", alice, 250))
	assert.Equal(t, uint64(250), app.balance(t, alice))

	// The same key is scoped per operation, so a mint still applies.
	assert.True(t, app.operation(t, "/api/v1/mint", ownerToken, "retry-1", alice, 10))
	assert.Equal(t, uint64(260), app.balance(t, alice))

	// Keys expire with the cache entry.
	app.redis.FastForward(25 * time.Hour)
	assert.True(t, app.operation(t, "/api/v1/transfers", ownerToken, "retry-1", alice, 250))
	assert.Equal(t, uint64(510), app.balance(t, alice))
}

func TestIntegration_IdempotentReplayOfDecline(t *testing.T) {
	app := newTestApp(t)

	alice := app.register(t, "alice")
	aliceToken := app.login(t, "alice")
	ownerToken := app.login(t, ownerUsername)

	assert.False(t, app.operation(t, "/api/v1/transfers", aliceToken, "k", app.owner, 100))
	require.True(t, app.operation(t, "/api/v1/transfers", ownerToken, "", alice, 100))

	// The retry reports the first outcome even though it would now succeed.
	assert.False(t, app.operation(t, "/api/v1/transfers", aliceToken, "k", app.owner, 100))
	assert.Equal(t, uint64(100), app.balance(t, alice))
}

func TestIntegration_Unauthorized(t *testing.T) {
	app := newTestApp(t)

	body := map[string]interface{}{"to": app.owner.String(), "amount": 1}
	resp := app.do(t, http.MethodPost, "/api/v1/transfers", "", "", body)
	assert.Equal(t, http.StatusUnauthorized, resp.status)

	resp = app.do(t, http.MethodPost, "/api/v1/mint", "not-a-jwt", "", body)
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, "AUTH_003", resp.errorCode(t))
}

func TestIntegration_InvalidInput(t *testing.T) {
	app := newTestApp(t)
	ownerToken := app.login(t, ownerUsername)

	tests := []struct {
		name string
		body interface{}
	}{
		{"short recipient", map[string]interface{}{"to": "abcd", "amount": 1}},
		{"missing amount", map[string]interface{}{"to": app.owner.String()}},
		{"negative amount", `{"to":"` + app.owner.String() + `","amount":-5}`},
		{"amount above u64", `{"to":"` + app.owner.String() + `","amount":18446744073709551616}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := app.do(t, http.MethodPost, "/api/v1/transfers", ownerToken, "", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.status)
		})
	}

	resp := app.do(t, http.MethodGet, "/api/v1/accounts/zz/balance", "", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "VAL_002", resp.errorCode(t))

	assert.Equal(t, ledger.DefaultInitialSupply, app.balance(t, app.owner))
}

func TestIntegration_RegisterRateLimited(t *testing.T) {
	app := newTestApp(t)

	// Invalid bodies are still counted against the window.
	for i := 0; i < 5; i++ {
		resp := app.do(t, http.MethodPost, "/api/v1/auth/register", "", "", "{}")
		require.Equal(t, http.StatusBadRequest, resp.status)
	}

	resp := app.do(t, http.MethodPost, "/api/v1/auth/register", "", "", "{}")
	assert.Equal(t, http.StatusTooManyRequests, resp.status)
	assert.Equal(t, "RATE_001", resp.errorCode(t))
	assert.NotEmpty(t, resp.header.Get("Retry-After"))
}

func TestIntegration_MetricsAndAudit(t *testing.T) {
	app := newTestApp(t)

	alice := app.register(t, "alice")
	ownerToken := app.login(t, ownerUsername)
	require.True(t, app.operation(t, "/api/v1/transfers", ownerToken, "", alice, 1))
	require.True(t, app.operation(t, "/api/v1/mint", ownerToken, "", alice, 1))

	resp := app.do(t, http.MethodGet, "/metrics", "", "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	text := string(resp.body)
	assert.Contains(t, text, `ledger_operations_total{operation="transfer",outcome="accepted"} 1`)
	assert.Contains(t, text, `ledger_operations_total{operation="mint",outcome="accepted"} 1`)
	assert.Contains(t, text, `route="/api/v1/transfers"`)

	assert.Eventually(t, func() bool {
		actions := app.audit.actions()
		return contains(actions, "REGISTER") && contains(actions, "LOGIN") &&
			contains(actions, "TRANSFER") && contains(actions, "MINT")
	}, 2*time.Second, 20*time.Millisecond)

	registered := app.audit.callers(domain.AuditActionRegister)
	require.Len(t, registered, 1)
	require.NotNil(t, registered[0])
	assert.Equal(t, alice, *registered[0])

	logins := app.audit.callers(domain.AuditActionLogin)
	require.Len(t, logins, 1)
	require.NotNil(t, logins[0])
	assert.Equal(t, app.owner, *logins[0])
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

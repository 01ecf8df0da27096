package integration

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"token-ledger/internal/core/domain"
	"token-ledger/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentTransfers_ConserveSupply fires transfers between registered
// accounts from many goroutines and checks that no balance is created or
// lost and no account is overdrawn.
func TestConcurrentTransfers_ConserveSupply(t *testing.T) {
	app := newTestAppWith(t, appOptions{noRateLimit: true})

	const (
		users      = 4
		perUser    = 25
		seedAmount = 1000
	)

	ownerToken := app.login(t, ownerUsername)
	accounts := make([]domain.AccountID, users)
	tokens := make([]string, users)
	for i := range accounts {
		name := fmt.Sprintf("user%d", i)
		accounts[i] = app.register(t, name)
		tokens[i] = app.login(t, name)
		require.True(t, app.operation(t, "/api/v1/transfers", ownerToken, "", accounts[i], seedAmount))
	}

	// Every user sends 100 to the next one perUser times. Each can afford
	// only part of that from its own seed, so some transfers are declined.
	var (
		wg       sync.WaitGroup
		accepted atomic.Int64
		declined atomic.Int64
	)
	for i := 0; i < users; i++ {
		for j := 0; j < perUser; j++ {
			wg.Add(1)
			go func(from int) {
				defer wg.Done()
				to := accounts[(from+1)%users]
				if app.operation(t, "/api/v1/transfers", tokens[from], "", to, 100) {
					accepted.Add(1)
				} else {
					declined.Add(1)
				}
			}(i)
		}
	}
	wg.Wait()

	t.Logf("accepted=%d declined=%d", accepted.Load(), declined.Load())
	assert.Equal(t, int64(users*perUser), accepted.Load()+declined.Load())

	var sum uint64
	for _, acct := range accounts {
		sum += app.balance(t, acct)
	}
	assert.Equal(t, uint64(users*seedAmount), sum, "transfers between users must not change their combined balance")
	assert.Equal(t, ledger.DefaultInitialSupply-users*seedAmount, app.balance(t, app.owner))
	assert.Equal(t, ledger.DefaultInitialSupply, app.totalSupply(t))
}

// TestConcurrentMintAndTransfer checks that the reported total supply always
// matches the minted amount, even while transfers run alongside.
func TestConcurrentMintAndTransfer(t *testing.T) {
	app := newTestAppWith(t, appOptions{noRateLimit: true})

	ownerToken := app.login(t, ownerUsername)
	alice := app.register(t, "alice")

	const rounds = 50
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.True(t, app.operation(t, "/api/v1/mint", ownerToken, "", alice, 3))
		}()
		go func() {
			defer wg.Done()
			assert.True(t, app.operation(t, "/api/v1/transfers", ownerToken, "", alice, 2))
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(rounds*5), app.balance(t, alice))
	assert.Equal(t, ledger.DefaultInitialSupply+rounds*3, app.totalSupply(t))
	assert.Equal(t, ledger.DefaultInitialSupply-rounds*2, app.balance(t, app.owner))
}

// TestConcurrentIdempotency sends the same Idempotency-Key from many
// goroutines at once. Exactly one transfer may apply.
func TestConcurrentIdempotency(t *testing.T) {
	app := newTestAppWith(t, appOptions{noRateLimit: true})

	ownerToken := app.login(t, ownerUsername)
	alice := app.register(t, "alice")

	const retries = 20
	var wg sync.WaitGroup
	for i := 0; i < retries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, app.operation(t, "/api/v1/transfers", ownerToken, "same-key", alice, 750))
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(750), app.balance(t, alice))
	assert.Equal(t, uint64(750), app.ledgerSvc.BalanceOf(context.Background(), alice))
	assert.Equal(t, ledger.DefaultInitialSupply-750, app.balance(t, app.owner))
}

// TestConcurrentRegister_SameUsername registers one username from many
// goroutines. The store's unique constraint lets exactly one through and the
// rest get a conflict, never a server error.
func TestConcurrentRegister_SameUsername(t *testing.T) {
	app := newTestAppWith(t, appOptions{noRateLimit: true})

	const attempts = 10
	var (
		wg        sync.WaitGroup
		created   atomic.Int64
		conflicts atomic.Int64
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := app.do(t, http.MethodPost, "/api/v1/auth/register", "", "", map[string]string{
				"username": "dana",
				"password": testPassword,
			})
			switch resp.status {
			case http.StatusCreated:
				created.Add(1)
			case http.StatusConflict:
				assert.Equal(t, "AUTH_002", resp.errorCode(t))
				conflicts.Add(1)
			default:
				t.Errorf("unexpected status %d: %s", resp.status, resp.body)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), created.Load())
	assert.Equal(t, int64(attempts-1), conflicts.Load())
}

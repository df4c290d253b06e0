package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tronscan-crawler/internal/domain"
	"tronscan-crawler/internal/pacing"
	"tronscan-crawler/internal/queue"
	"tronscan-crawler/internal/storage/memory"
	"tronscan-crawler/internal/tronscan"
)

const (
	usdtBase58 = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
	usdtHex    = "41a614f803b6fd780986a42c78ec9c7f77e6ded13c"
)

func TestSeedAddresses(t *testing.T) {
	env := newTestEnv()

	n, err := env.crawler.SeedAddresses(context.Background(), []string{usdtBase58, usdtHex, "bogus", ""})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "hex form normalizes to the same address")

	jobs := env.queue.jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.JobContract, jobs[0].Kind)
	assert.Equal(t, usdtBase58, jobs[0].Payload.Target)
}

func TestSeedAddresses_QueueClosed(t *testing.T) {
	env := newTestEnv()
	env.queue.err = queue.ErrClosed

	n, err := env.crawler.SeedAddresses(context.Background(), []string{usdtBase58})
	assert.True(t, errors.Is(err, queue.ErrClosed))
	assert.Zero(t, n)
}

func TestSeedFromStore(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.stores.Contracts.Upsert(ctx, &domain.Contract{Address: usdtBase58}))

	n, err := env.crawler.SeedFromStore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, env.queue.ofKind(domain.JobContract), 1)
}

func TestStartSweep(t *testing.T) {
	env := newTestEnv()

	require.NoError(t, env.crawler.StartSweep(context.Background(), 30))

	jobs := env.queue.jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.JobSweep, jobs[0].Kind)
	assert.Equal(t, 30, jobs[0].Payload.DelayMinutes)
	assert.Equal(t, testNow, jobs[0].ScheduledAt)
}

func TestStartSweep_InvalidInterval(t *testing.T) {
	env := newTestEnv()

	assert.Error(t, env.crawler.StartSweep(context.Background(), 0))
	assert.Error(t, env.crawler.StartSweep(context.Background(), -5))
	assert.Empty(t, env.queue.jobs())
}

func TestRegister(t *testing.T) {
	q := queue.NewMemoryQueue()
	t.Cleanup(func() { _ = q.Shutdown(time.Second) })

	env := newTestEnv()
	c := New(env.api, q, env.stores)

	require.NoError(t, c.Register())

	err := c.Register()
	assert.True(t, errors.Is(err, queue.ErrAlreadyProcessing))
}

// TestCrawl_EndToEnd runs a seeded crawl through the in-memory queue until
// the graph reachable from one contract is stored.
func TestCrawl_EndToEnd(t *testing.T) {
	api := newFakeAPI()
	api.contracts[usdtBase58] = &tronscan.Contract{
		Name:    "Tether USD",
		Creator: tronscan.Creator{Address: "TCreator"},
	}
	api.wallets["TCreator"] = &tronscan.WalletTokens{
		Tokens: []domain.WalletToken{{TokenAbbr: "trx", TokenValueInUSD: decimal.NewFromInt(2)}},
		Count:  1,
	}
	api.wallets["TAlice"] = &tronscan.WalletTokens{Count: 0}
	api.transfers[usdtBase58] = []tronscan.Transfer{
		{Hash: "h1", FromAddress: "TCreator", ToAddress: "TAlice", Amount: decimal.NewFromInt(1)},
	}
	api.transfers["TCreator"] = []tronscan.Transfer{
		{Hash: "h1", FromAddress: "TCreator", ToAddress: "TAlice", Amount: decimal.NewFromInt(1)},
		{Hash: "h2", FromAddress: "TAlice", ToAddress: "TCreator", Amount: decimal.NewFromInt(2)},
	}

	q := queue.NewMemoryQueue(queue.WithPollInterval(5 * time.Millisecond))
	wallets := memory.NewWalletStore()
	snapshots := memory.NewSnapshotStore()
	txs := memory.NewTransactionStore()
	stores := Stores{
		Contracts:    memory.NewContractStore(),
		Wallets:      wallets,
		Snapshots:    snapshots,
		Transactions: txs,
	}
	clock := pacing.NewClock(
		pacing.WithQuantum(time.Millisecond),
		pacing.WithIdleStep(time.Millisecond),
	)
	c := New(api, q, stores, WithClock(clock), WithConcurrency(4))

	require.NoError(t, c.Register())
	n, err := c.SeedAddresses(context.Background(), []string{usdtBase58})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.Eventually(t, func() bool {
		a, _ := snapshots.GetByWallet(context.Background(), "TAlice")
		return txs.Len() == 2 && len(a) == 1 && api.callCount("transactions:TAlice") == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, q.Shutdown(time.Second))

	contract, err := stores.Contracts.GetByAddress(context.Background(), usdtBase58)
	require.NoError(t, err)
	assert.Equal(t, "Tether USD", contract.Name)

	creator, err := wallets.GetByAddress(context.Background(), "TCreator")
	require.NoError(t, err)
	assert.NotEmpty(t, creator.CurrentSnapshotID)

	assert.Equal(t, 1, api.callCount("contract:"+usdtBase58))
	assert.Equal(t, 1, api.callCount("transactions:"+usdtBase58))
	assert.Equal(t, 1, api.callCount("transactions:TCreator"))
	assert.Equal(t, 1, api.callCount("transactions:TAlice"))
}

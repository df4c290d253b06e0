package crawler

import (
	"context"
	"errors"
	"sync"
	"time"

	"tronscan-crawler/internal/domain"
	"tronscan-crawler/internal/pacing"
	"tronscan-crawler/internal/queue"
	"tronscan-crawler/internal/storage/memory"
	"tronscan-crawler/internal/tronscan"
)

var testNow = time.UnixMilli(1_700_000_000_000)

func fixedNow() time.Time { return testNow }

// fakeAPI serves canned explorer responses. Missing entries are "no result".
type fakeAPI struct {
	mu        sync.Mutex
	contracts map[string]*tronscan.Contract
	wallets   map[string]*tronscan.WalletTokens
	transfers map[string][]tronscan.Transfer
	calls     map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		contracts: make(map[string]*tronscan.Contract),
		wallets:   make(map[string]*tronscan.WalletTokens),
		transfers: make(map[string][]tronscan.Transfer),
		calls:     make(map[string]int),
	}
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	f.calls[call]++
	f.mu.Unlock()
}

func (f *fakeAPI) callCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[call]
}

func (f *fakeAPI) FetchContract(_ context.Context, address string) (*tronscan.Contract, bool) {
	f.record("contract:" + address)
	c, ok := f.contracts[address]
	return c, ok
}

func (f *fakeAPI) FetchWalletTokens(_ context.Context, address string) (*tronscan.WalletTokens, bool) {
	f.record("wallet:" + address)
	w, ok := f.wallets[address]
	return w, ok
}

func (f *fakeAPI) FetchTransactionHistory(_ context.Context, target string) ([]tronscan.Transfer, bool) {
	f.record("transactions:" + target)
	t, ok := f.transfers[target]
	return t, ok
}

// createdJob is one recorded Create call.
type createdJob struct {
	Kind        domain.JobKind
	Payload     domain.JobPayload
	Priority    queue.Priority
	ScheduledAt time.Time
}

// recordingQueue records Create calls and never delivers.
type recordingQueue struct {
	mu      sync.Mutex
	created []createdJob
	err     error
}

func (q *recordingQueue) Create(_ context.Context, kind domain.JobKind, payload domain.JobPayload, priority queue.Priority, scheduledAt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.created = append(q.created, createdJob{Kind: kind, Payload: payload, Priority: priority, ScheduledAt: scheduledAt})
	return nil
}

func (q *recordingQueue) Process(domain.JobKind, int, queue.Handler) error { return nil }

func (q *recordingQueue) Shutdown(time.Duration) error { return nil }

func (q *recordingQueue) Stats(context.Context) (queue.Stats, error) { return queue.Stats{}, nil }

func (q *recordingQueue) jobs() []createdJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]createdJob(nil), q.created...)
}

func (q *recordingQueue) ofKind(kind domain.JobKind) []createdJob {
	var out []createdJob
	for _, j := range q.jobs() {
		if j.Kind == kind {
			out = append(out, j)
		}
	}
	return out
}

// failingWallets fails ListAddresses and delegates everything else.
type failingWallets struct {
	*memory.WalletStore
}

func (failingWallets) ListAddresses(context.Context) ([]string, error) {
	return nil, errors.New("connection reset")
}

type testEnv struct {
	api     *fakeAPI
	queue   *recordingQueue
	stores  Stores
	wallets *memory.WalletStore
	txs     *memory.TransactionStore
	crawler *Crawler
}

func newTestEnv(opts ...Option) *testEnv {
	env := &testEnv{
		api:     newFakeAPI(),
		queue:   &recordingQueue{},
		wallets: memory.NewWalletStore(),
		txs:     memory.NewTransactionStore(),
	}
	env.stores = Stores{
		Contracts:    memory.NewContractStore(),
		Wallets:      env.wallets,
		Snapshots:    memory.NewSnapshotStore(),
		Transactions: env.txs,
	}
	base := []Option{
		WithNow(fixedNow),
		WithClock(pacing.NewClock(pacing.WithNow(fixedNow))),
	}
	env.crawler = New(env.api, env.queue, env.stores, append(base, opts...)...)
	return env
}

func job(kind domain.JobKind, payload domain.JobPayload) *queue.Job {
	return &queue.Job{ID: "job-1", Kind: kind, Payload: payload, Priority: queue.PriorityHigh}
}

package lending

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory InventoryStore. The mutex makes ReserveCopy
// and FinalizeReturn atomic conditional updates, matching the
// linearizability the MySQL store provides per item row.
type fakeStore struct {
	mu    sync.Mutex
	items map[string]Item
	loans map[string]Loan

	failReserve bool // force the reservation predicate to miss
}

func newFakeStore(items ...Item) *fakeStore {
	s := &fakeStore{
		items: make(map[string]Item),
		loans: make(map[string]Loan),
	}
	for _, it := range items {
		s.items[it.ItemID] = it
	}
	return s
}

func (s *fakeStore) GetItem(_ context.Context, itemID string) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[itemID]
	if !ok {
		return nil, NewNotFoundError("item not found")
	}
	snapshot := it
	return &snapshot, nil
}

func (s *fakeStore) ReserveCopy(_ context.Context, itemID string, _ time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReserve {
		return false, nil
	}
	it, ok := s.items[itemID]
	if !ok || it.AvailableCount <= 0 {
		return false, nil
	}
	it.AvailableCount--
	it.BorrowedCount++
	s.items[itemID] = it
	return true, nil
}

func (s *fakeStore) InsertLoan(_ context.Context, l *Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loans[l.LoanID] = *l
	return nil
}

func (s *fakeStore) DeleteLoan(_ context.Context, loanID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.loans, loanID)
	return nil
}

func (s *fakeStore) GetLoan(_ context.Context, loanID string) (*Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[loanID]
	if !ok {
		return nil, NewNotFoundError("loan not found")
	}
	snapshot := l
	return &snapshot, nil
}

func (s *fakeStore) FinalizeReturn(_ context.Context, loanID, itemID string, returnedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[loanID]
	if !ok {
		return NewNotFoundError("loan not found")
	}
	if l.Status != StatusBorrowed {
		return NewConflictError("loan already returned")
	}
	it, ok := s.items[itemID]
	if !ok || it.BorrowedCount < 1 {
		return NewInternalError("item counters out of sync with loan ledger")
	}
	l.Status = StatusReturned
	l.ReturnedAt.Time = returnedAt
	l.ReturnedAt.Valid = true
	s.loans[loanID] = l
	it.AvailableCount++
	it.BorrowedCount--
	s.items[itemID] = it
	return nil
}

func (s *fakeStore) item(t *testing.T, id string) Item {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	require.True(t, ok, "item %s missing", id)
	return it
}

func (s *fakeStore) activeLoans(itemID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.loans {
		if l.ItemID == itemID && l.Status == StatusBorrowed {
			n++
		}
	}
	return n
}

func (s *fakeStore) loanCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loans)
}

type fakeCache struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (c *fakeCache) SetIdempotency(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	if c.seen[key] {
		return false, nil
	}
	c.seen[key] = true
	return true, nil
}

func newTestService(store InventoryStore, cache IdempotencyCache) *Service {
	return &Service{store: store, cache: cache, clock: realClock{}, id: ulidGen{}}
}

func requireDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	de, ok := err.(*DomainError)
	require.True(t, ok, "expected DomainError, got %T: %v", err, err)
	assert.Equal(t, code, de.Code)
}

// invariant from the data model: counters sum up and match the ledger
func assertCountersConsistent(t *testing.T, store *fakeStore, itemID string) {
	t.Helper()
	it := store.item(t, itemID)
	assert.Equal(t, it.TotalCount, it.AvailableCount+it.BorrowedCount,
		"available+borrowed must equal total")
	assert.GreaterOrEqual(t, it.AvailableCount, 0)
	assert.GreaterOrEqual(t, it.BorrowedCount, 0)
	assert.Equal(t, it.BorrowedCount, store.activeLoans(itemID),
		"borrowed_count must match active loans")
}

func TestBorrow_Success(t *testing.T) {
	store := newFakeStore(Item{ItemID: "item-1", TotalCount: 2, AvailableCount: 2, BorrowedCount: 0})
	svc := newTestService(store, nil)

	res, err := svc.Borrow(context.Background(), "user-1", "item-1", "")
	require.NoError(t, err)
	assert.Equal(t, "user-1", res.UserID)
	assert.Equal(t, "item-1", res.ItemID)
	assert.Equal(t, StatusBorrowed, res.Status)
	assert.Nil(t, res.ReturnedAt)
	assert.NotEmpty(t, res.LoanID)
	assert.False(t, res.BorrowedAt.IsZero())

	it := store.item(t, "item-1")
	assert.Equal(t, 1, it.AvailableCount)
	assert.Equal(t, 1, it.BorrowedCount)
	assertCountersConsistent(t, store, "item-1")
}

func TestBorrow_ItemNotFound(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	_, err := svc.Borrow(context.Background(), "user-1", "missing", "")
	requireDomainCode(t, err, ErrCodeNotFound)
}

func TestBorrow_MissingItemID(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	_, err := svc.Borrow(context.Background(), "user-1", "", "")
	requireDomainCode(t, err, ErrCodeInvalidArgument)
}

func TestBorrow_UnavailableFastPath(t *testing.T) {
	store := newFakeStore(Item{ItemID: "item-1", TotalCount: 1, AvailableCount: 0, BorrowedCount: 1})
	svc := newTestService(store, nil)

	_, err := svc.Borrow(context.Background(), "user-1", "item-1", "")
	requireDomainCode(t, err, ErrCodeUnavailable)
	assert.Equal(t, 0, store.loanCount(), "no provisional loan may be written on the fast path")
}

func TestBorrow_CompensatesLostRace(t *testing.T) {
	// the availability check passes, then the conditional update misses:
	// the window between read and write was lost to a concurrent borrow
	store := newFakeStore(Item{ItemID: "item-1", TotalCount: 1, AvailableCount: 1, BorrowedCount: 0})
	store.failReserve = true
	svc := newTestService(store, nil)

	_, err := svc.Borrow(context.Background(), "user-1", "item-1", "")
	requireDomainCode(t, err, ErrCodeUnavailable)
	assert.Equal(t, 0, store.loanCount(), "provisional loan must be compensated away")
}

func TestBorrow_ConcurrentLastCopy(t *testing.T) {
	store := newFakeStore(Item{ItemID: "item-1", TotalCount: 1, AvailableCount: 1, BorrowedCount: 0})
	svc := newTestService(store, nil)

	const callers = 2
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Borrow(context.Background(), "user-a", "item-1", "")
		}(i)
	}
	wg.Wait()

	successes, unavailable := 0, 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		de, ok := err.(*DomainError)
		require.True(t, ok, "unexpected error: %v", err)
		require.Equal(t, ErrCodeUnavailable, de.Code)
		unavailable++
	}

	assert.Equal(t, 1, successes, "exactly one borrow may win the last copy")
	assert.Equal(t, 1, unavailable)

	it := store.item(t, "item-1")
	assert.Equal(t, 0, it.AvailableCount)
	assert.Equal(t, 1, it.BorrowedCount)
	assert.Equal(t, 1, store.loanCount())
	assertCountersConsistent(t, store, "item-1")
}

func TestBorrow_ManyConcurrentCallers(t *testing.T) {
	store := newFakeStore(Item{ItemID: "item-1", TotalCount: 5, AvailableCount: 5, BorrowedCount: 0})
	svc := newTestService(store, nil)

	const callers = 32
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Borrow(context.Background(), "user-a", "item-1", "")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		}
	}

	assert.Equal(t, 5, successes, "one success per available copy")
	it := store.item(t, "item-1")
	assert.Equal(t, 0, it.AvailableCount)
	assert.Equal(t, 5, it.BorrowedCount)
	assertCountersConsistent(t, store, "item-1")
}

func TestBorrow_DuplicateIdempotencyKey(t *testing.T) {
	store := newFakeStore(Item{ItemID: "item-1", TotalCount: 2, AvailableCount: 2, BorrowedCount: 0})
	svc := newTestService(store, &fakeCache{})

	_, err := svc.Borrow(context.Background(), "user-1", "item-1", "key-1")
	require.NoError(t, err)

	_, err = svc.Borrow(context.Background(), "user-1", "item-1", "key-1")
	requireDomainCode(t, err, ErrCodeConflict)

	it := store.item(t, "item-1")
	assert.Equal(t, 1, it.BorrowedCount, "replayed request must not take a second copy")
}

func TestReturn_Success(t *testing.T) {
	store := newFakeStore(Item{ItemID: "item-1", TotalCount: 1, AvailableCount: 1, BorrowedCount: 0})
	svc := newTestService(store, nil)

	loan, err := svc.Borrow(context.Background(), "user-1", "item-1", "")
	require.NoError(t, err)

	res, err := svc.Return(context.Background(), "user-1", "student", loan.LoanID)
	require.NoError(t, err)
	assert.True(t, res.OK)

	it := store.item(t, "item-1")
	assert.Equal(t, 1, it.AvailableCount)
	assert.Equal(t, 0, it.BorrowedCount)
	assertCountersConsistent(t, store, "item-1")

	stored, err := store.GetLoan(context.Background(), loan.LoanID)
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, stored.Status)
	assert.True(t, stored.ReturnedAt.Valid)
}

func TestReturn_NotFound(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	_, err := svc.Return(context.Background(), "user-1", "student", "missing")
	requireDomainCode(t, err, ErrCodeNotFound)
}

func TestReturn_TwiceConflictsOnce(t *testing.T) {
	store := newFakeStore(Item{ItemID: "item-1", TotalCount: 1, AvailableCount: 1, BorrowedCount: 0})
	svc := newTestService(store, nil)

	loan, err := svc.Borrow(context.Background(), "user-1", "item-1", "")
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), "user-1", "student", loan.LoanID)
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), "user-1", "student", loan.LoanID)
	requireDomainCode(t, err, ErrCodeConflict)

	// counters changed exactly once
	it := store.item(t, "item-1")
	assert.Equal(t, 1, it.AvailableCount)
	assert.Equal(t, 0, it.BorrowedCount)
}

func TestReturn_ForbiddenForOtherUser(t *testing.T) {
	store := newFakeStore(Item{ItemID: "item-1", TotalCount: 1, AvailableCount: 1, BorrowedCount: 0})
	svc := newTestService(store, nil)

	loan, err := svc.Borrow(context.Background(), "user-1", "item-1", "")
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), "user-2", "student", loan.LoanID)
	requireDomainCode(t, err, ErrCodeForbidden)

	it := store.item(t, "item-1")
	assert.Equal(t, 1, it.BorrowedCount, "rejected return must not touch the counters")
}

func TestReturn_AdminMayReturnAnyLoan(t *testing.T) {
	store := newFakeStore(Item{ItemID: "item-1", TotalCount: 1, AvailableCount: 1, BorrowedCount: 0})
	svc := newTestService(store, nil)

	loan, err := svc.Borrow(context.Background(), "user-1", "item-1", "")
	require.NoError(t, err)

	res, err := svc.Return(context.Background(), "admin-1", "admin", loan.LoanID)
	require.NoError(t, err)
	assert.True(t, res.OK)
}

func TestLendingScenario_TwoCopies(t *testing.T) {
	store := newFakeStore(Item{ItemID: "item-1", TotalCount: 2, AvailableCount: 2, BorrowedCount: 0})
	svc := newTestService(store, nil)
	ctx := context.Background()

	first, err := svc.Borrow(ctx, "user-1", "item-1", "")
	require.NoError(t, err)
	_, err = svc.Borrow(ctx, "user-2", "item-1", "")
	require.NoError(t, err)

	it := store.item(t, "item-1")
	assert.Equal(t, Item{ItemID: "item-1", TotalCount: 2, AvailableCount: 0, BorrowedCount: 2}, it)

	_, err = svc.Borrow(ctx, "user-3", "item-1", "")
	requireDomainCode(t, err, ErrCodeUnavailable)

	_, err = svc.Return(ctx, "user-1", "student", first.LoanID)
	require.NoError(t, err)

	it = store.item(t, "item-1")
	assert.Equal(t, Item{ItemID: "item-1", TotalCount: 2, AvailableCount: 1, BorrowedCount: 1}, it)
	assertCountersConsistent(t, store, "item-1")
}

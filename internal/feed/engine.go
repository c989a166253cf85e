package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"bookworm/internal/api"
	"bookworm/pkg/domain"
)

// State is the engine's busy state. Loading and refreshing are exclusive by
// construction: a new fetch starts only from idle.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateRefreshing State = "refreshing"
)

var (
	// ErrBusy rejects a fetch while another one is in flight.
	ErrBusy = errors.New("feed: fetch already in flight")
	// ErrNoMorePages rejects LoadMore once the last page was reached.
	ErrNoMorePages = errors.New("feed: no more pages")
	// ErrStale marks a response that arrived after the list it targeted was
	// replaced or reset. The response is discarded without mutation.
	ErrStale = errors.New("feed: stale response discarded")
)

// Engine owns the in-memory paginated feed. All mutation goes through its
// operations; items are only ever replaced wholesale (refresh), merged
// (append), or removed after a confirmed server delete.
type Engine struct {
	client *api.Client
	limit  int

	mu      sync.Mutex
	items   []domain.Book
	page    int
	hasMore bool
	state   State
	epoch   uint64
}

// NewEngine creates an empty engine. Load must run before LoadMore has
// anything to extend.
func NewEngine(client *api.Client, limit int) *Engine {
	if limit <= 0 {
		limit = 5
	}
	return &Engine{
		client: client,
		limit:  limit,
		state:  StateIdle,
	}
}

// Load fetches page 1 and replaces the list. Used for the initial load.
func (e *Engine) Load(ctx context.Context) error {
	return e.fetchFirstPage(ctx, StateLoading)
}

// Refresh re-fetches page 1 and replaces the list, irrespective of prior
// contents. On failure the previous list stays visible.
func (e *Engine) Refresh(ctx context.Context) error {
	return e.fetchFirstPage(ctx, StateRefreshing)
}

func (e *Engine) fetchFirstPage(ctx context.Context, busy State) error {
	epoch, err := e.begin(busy)
	if err != nil {
		return err
	}

	page, err := e.client.ListBooks(ctx, 1, e.limit)

	e.mu.Lock()
	defer e.mu.Unlock()
	if epoch != e.epoch {
		// Whoever bumped the epoch already reset the state; it now belongs
		// to a newer operation and must stay untouched.
		slog.Debug("feed: discarding stale page", "page", 1, "epoch", epoch)
		return ErrStale
	}
	e.state = StateIdle
	if err != nil {
		slog.Warn("feed: fetch failed", "page", 1, "error", err)
		return err
	}
	e.items = append([]domain.Book(nil), page.Books...)
	e.page = 1
	e.hasMore = 1 < page.TotalPages
	return nil
}

// LoadMore fetches the next page and merges it into the list. Callers drive
// this from the scroll position; it refuses to run while a fetch is in
// flight or once the last page was reached.
func (e *Engine) LoadMore(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return ErrBusy
	}
	if !e.hasMore {
		e.mu.Unlock()
		return ErrNoMorePages
	}
	next := e.page + 1
	e.epoch++
	epoch := e.epoch
	e.state = StateLoading
	e.mu.Unlock()

	page, err := e.client.ListBooks(ctx, next, e.limit)

	e.mu.Lock()
	defer e.mu.Unlock()
	if epoch != e.epoch {
		slog.Debug("feed: discarding stale page", "page", next, "epoch", epoch)
		return ErrStale
	}
	e.state = StateIdle
	if err != nil {
		slog.Warn("feed: fetch failed", "page", next, "error", err)
		return err
	}
	e.items = mergeBooks(e.items, page.Books)
	e.page = next
	e.hasMore = next < page.TotalPages
	return nil
}

// RemoveLocally drops the entry after the server confirmed its deletion.
// No-op if the id is not present.
func (e *Engine) RemoveLocally(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	filtered := e.items[:0]
	for _, b := range e.items {
		if b.ID != id {
			filtered = append(filtered, b)
		}
	}
	e.items = filtered
}

// Reset empties the list and invalidates every in-flight fetch. Called on
// logout.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.epoch++
	e.items = nil
	e.page = 0
	e.hasMore = false
	e.state = StateIdle
}

// Snapshot is a consistent copy of the engine's visible state.
type Snapshot struct {
	Items   []domain.Book
	Page    int
	HasMore bool
	State   State
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Items:   append([]domain.Book(nil), e.items...),
		Page:    e.page,
		HasMore: e.hasMore,
		State:   e.state,
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) HasMore() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasMore
}

func (e *Engine) begin(busy State) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return 0, ErrBusy
	}
	e.epoch++
	e.state = busy
	return e.epoch, nil
}

// mergeBooks concatenates existing and fetched, keeping one entry per id at
// its first position but with the field values of its last occurrence, so a
// re-fetched record refreshes stale fields without moving.
func mergeBooks(existing, fetched []domain.Book) []domain.Book {
	merged := make([]domain.Book, 0, len(existing)+len(fetched))
	index := make(map[string]int, len(existing)+len(fetched))
	for _, list := range [][]domain.Book{existing, fetched} {
		for _, b := range list {
			if i, ok := index[b.ID]; ok {
				merged[i] = b
				continue
			}
			index[b.ID] = len(merged)
			merged = append(merged, b)
		}
	}
	return merged
}

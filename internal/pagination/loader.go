// Package pagination keeps one page of a filtered, paginated collection in
// step with user-driven filter and paging changes.
//
// Every fetch captures a sequence number when it is issued. A response is
// applied only if its number is still the latest one, so a slow earlier
// request can never overwrite a newer result.
package pagination

import (
	"context"
	"log/slog"
	"maps"
	"sync"

	"github.com/example/managerapp/internal/metrics"
)

const DefaultPageSize = 10

// Query is the (filters, page, size) tuple a fetch is issued for.
type Query struct {
	PageIndex int
	PageSize  int
	Filters   map[string]string
}

func (q Query) clone() Query {
	q.Filters = maps.Clone(q.Filters)
	if q.Filters == nil {
		q.Filters = map[string]string{}
	}
	return q
}

// Result is one page as reported by the backend. Totals are trusted as-is.
type Result[T any] struct {
	Items         []T
	TotalElements int
	TotalPages    int
}

// Fetcher retrieves the page selected by q.
type Fetcher[T any] func(ctx context.Context, q Query) (Result[T], error)

// State is an immutable snapshot of a Loader.
type State[T any] struct {
	Items         []T
	PageIndex     int
	PageSize      int
	TotalElements int
	TotalPages    int
	Filters       map[string]string
	Loading       bool
	Err           error
}

// Range returns the 1-based display bounds of the snapshot's page. from is 0
// when the page is empty.
func (s State[T]) Range() (from, to int) {
	return pageRange(s.PageIndex, s.PageSize, len(s.Items))
}

func (s State[T]) CanPrevious() bool { return s.PageIndex > 0 }

func (s State[T]) CanNext() bool { return s.PageIndex < s.TotalPages-1 }

// Option customises a Loader.
type Option func(*options)

type options struct {
	pageSize int
	filters  map[string]string
	onError  func(context.Context, error)
	logger   *slog.Logger
}

// WithPageSize sets the initial page length.
func WithPageSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.pageSize = size
		}
	}
}

// WithFilter seeds an initial filter value.
func WithFilter(name, value string) Option {
	return func(o *options) {
		if o.filters == nil {
			o.filters = map[string]string{}
		}
		if value != "" {
			o.filters[name] = value
		}
	}
}

// WithErrorHandler receives every failure of the most recent fetch.
func WithErrorHandler(fn func(context.Context, error)) Option {
	return func(o *options) { o.onError = fn }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Loader holds the current page of one resource.
type Loader[T any] struct {
	resource string
	fetch    Fetcher[T]
	onError  func(context.Context, error)
	logger   *slog.Logger

	mu            sync.Mutex
	query         Query
	items         []T
	totalElements int
	totalPages    int
	loading       bool
	lastErr       error
	issued        uint64
	staleDropped  int
}

// NewLoader creates a loader for resource backed by fetch. Nothing is fetched
// until Refresh or one of the setters is called.
func NewLoader[T any](resource string, fetch Fetcher[T], opts ...Option) *Loader[T] {
	o := options{pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Loader[T]{
		resource: resource,
		fetch:    fetch,
		onError:  o.onError,
		logger:   o.logger.With("resource", resource),
		query:    Query{PageSize: o.pageSize, Filters: maps.Clone(o.filters)}.clone(),
	}
}

// Refresh re-issues the fetch for the current query. Only the most recently
// issued fetch may apply its outcome; superseded responses, successful or
// not, are dropped and Refresh returns nil for them.
func (l *Loader[T]) Refresh(ctx context.Context) error {
	l.mu.Lock()
	l.issued++
	seq := l.issued
	query := l.query.clone()
	l.loading = true
	l.mu.Unlock()

	result, err := l.fetch(ctx, query)

	l.mu.Lock()
	if seq != l.issued {
		l.staleDropped++
		l.mu.Unlock()
		metrics.StaleResponsesDiscarded.WithLabelValues(l.resource).Inc()
		l.logger.Debug("discarded superseded page response", "page", query.PageIndex, "sequence", seq)
		return nil
	}
	l.loading = false
	if err != nil {
		l.lastErr = err
		l.mu.Unlock()
		metrics.PageFetchesTotal.WithLabelValues(l.resource, "error").Inc()
		l.logger.Warn("page fetch failed", "page", query.PageIndex, "error", err)
		if l.onError != nil {
			l.onError(ctx, err)
		}
		return err
	}
	l.items = result.Items
	l.totalElements = result.TotalElements
	l.totalPages = result.TotalPages
	l.lastErr = nil
	l.mu.Unlock()

	metrics.PageFetchesTotal.WithLabelValues(l.resource, "ok").Inc()
	return nil
}

// Change is one user gesture over the query. Filter edits, a new page size
// and a page move are applied together and fetched once.
type Change struct {
	// Filters are merged into the current filters; an empty value removes one.
	Filters map[string]string
	// PageSize replaces the page length when positive.
	PageSize int
	// PageIndex moves to that page when non-nil and not negative.
	PageIndex *int
}

// Apply performs c in one transition and refreshes once. Changing a filter or
// the page size returns to the first page unless c also names a page. A page
// is clamped to the last known page only when the filters and size are
// unchanged, since otherwise the known totals describe a different query.
// An empty Change simply refreshes the current page.
func (l *Loader[T]) Apply(ctx context.Context, c Change) error {
	l.mu.Lock()
	reset := false
	for name, value := range c.Filters {
		reset = true
		if value == "" {
			delete(l.query.Filters, name)
			continue
		}
		l.query.Filters[name] = value
	}
	if c.PageSize > 0 {
		l.query.PageSize = c.PageSize
		reset = true
	}
	if reset {
		l.query.PageIndex = 0
	}
	if c.PageIndex != nil && *c.PageIndex >= 0 {
		n := *c.PageIndex
		if !reset && l.totalPages > 0 && n > l.totalPages-1 {
			n = l.totalPages - 1
		}
		l.query.PageIndex = n
	}
	l.mu.Unlock()
	return l.Refresh(ctx)
}

// SetFilter sets one filter and returns to the first page. An empty value
// removes the filter.
func (l *Loader[T]) SetFilter(ctx context.Context, name, value string) error {
	return l.Apply(ctx, Change{Filters: map[string]string{name: value}})
}

// SetFilters replaces several filters in one transition.
func (l *Loader[T]) SetFilters(ctx context.Context, values map[string]string) error {
	return l.Apply(ctx, Change{Filters: values})
}

// SetPage moves to page n, clamped to the last known page. Negative values are ignored.
func (l *Loader[T]) SetPage(ctx context.Context, n int) error {
	if n < 0 {
		return nil
	}
	return l.Apply(ctx, Change{PageIndex: &n})
}

// SetPageSize changes the page length and returns to the first page.
func (l *Loader[T]) SetPageSize(ctx context.Context, size int) error {
	if size <= 0 {
		return nil
	}
	return l.Apply(ctx, Change{PageSize: size})
}

// Next and Previous move one page when the boundary allows it.
func (l *Loader[T]) Next(ctx context.Context) error {
	if !l.CanNext() {
		return nil
	}
	return l.SetPage(ctx, l.Query().PageIndex+1)
}

func (l *Loader[T]) Previous(ctx context.Context) error {
	if !l.CanPrevious() {
		return nil
	}
	return l.SetPage(ctx, l.Query().PageIndex-1)
}

// Mutate performs op and, when it succeeds, refreshes the current page once.
// A failed op leaves the displayed page untouched and is returned as-is.
// Failures of the follow-up refresh go to the error handler only.
func (l *Loader[T]) Mutate(ctx context.Context, op func(context.Context) error) error {
	if err := op(ctx); err != nil {
		return err
	}
	_ = l.Refresh(ctx)
	return nil
}

// Query returns a copy of the current query.
func (l *Loader[T]) Query() Query {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query.clone()
}

// Snapshot returns the current state.
func (l *Loader[T]) Snapshot() State[T] {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := make([]T, len(l.items))
	copy(items, l.items)
	return State[T]{
		Items:         items,
		PageIndex:     l.query.PageIndex,
		PageSize:      l.query.PageSize,
		TotalElements: l.totalElements,
		TotalPages:    l.totalPages,
		Filters:       maps.Clone(l.query.Filters),
		Loading:       l.loading,
		Err:           l.lastErr,
	}
}

// Loading reports whether the most recent fetch is still in flight.
func (l *Loader[T]) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// StaleDiscards returns how many superseded responses were dropped.
func (l *Loader[T]) StaleDiscards() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.staleDropped
}

// Range returns the 1-based display bounds of the current page. from is 0
// when the page is empty.
func (l *Loader[T]) Range() (from, to int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return pageRange(l.query.PageIndex, l.query.PageSize, len(l.items))
}

func pageRange(pageIndex, pageSize, count int) (int, int) {
	offset := pageIndex * pageSize
	if count == 0 {
		return 0, offset
	}
	return offset + 1, offset + count
}

func (l *Loader[T]) CanPrevious() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query.PageIndex > 0
}

func (l *Loader[T]) CanNext() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query.PageIndex < l.totalPages-1
}

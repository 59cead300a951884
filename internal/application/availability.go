package application

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/example/managerapp/internal/backend"
	"github.com/example/managerapp/internal/metrics"
)

// AvailabilityBackend is the part of the REST client the slot picker needs.
type AvailabilityBackend interface {
	Availability(ctx context.Context, userID int64, date string) ([]string, error)
}

// SlotPicker drives the time-slot list of the appointment dialog. Opening,
// closing or changing the date invalidates any fetch still in flight and
// clears the offered slots and the selected time.
type SlotPicker struct {
	screen
	api   AvailabilityBackend
	cache *slotCache

	mu       sync.Mutex
	seq      uint64
	open     bool
	userID   int64
	date     string
	slots    []time.Time
	selected *time.Time
	loading  bool
	lastErr  error
}

// SlotPickerOptions tunes the availability cache.
type SlotPickerOptions struct {
	ScreenOptions
	CacheTTL time.Duration
}

func NewSlotPicker(api AvailabilityBackend, opts SlotPickerOptions) *SlotPicker {
	screenOpts := opts.ScreenOptions.withDefaults()
	return &SlotPicker{
		screen: screen{name: "SlotPicker", opts: screenOpts},
		api:    api,
		cache:  newSlotCache(opts.CacheTTL, 0, screenOpts.Clock),
	}
}

// Open shows the picker for userID on date (YYYY-MM-DD) and loads its slots.
// An invalid date leaves the picker as it was.
func (p *SlotPicker) Open(ctx context.Context, userID int64, date string) error {
	if err := p.validateDate(date); err != nil {
		return err
	}

	p.mu.Lock()
	p.open = true
	p.userID = userID
	seq := p.beginLocked(date)
	p.mu.Unlock()
	return p.load(ctx, seq, userID, date)
}

// SetDate switches the picker to another day and reloads its slots.
func (p *SlotPicker) SetDate(ctx context.Context, date string) error {
	if err := p.validateDate(date); err != nil {
		return err
	}

	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return ErrPickerClosed
	}
	seq := p.beginLocked(date)
	userID := p.userID
	p.mu.Unlock()
	return p.load(ctx, seq, userID, date)
}

func (p *SlotPicker) validateDate(date string) error {
	if _, err := time.ParseInLocation(time.DateOnly, date, p.opts.Location); err != nil {
		v := &ValidationError{}
		v.add("date", fmt.Sprintf("data inválida: %q", date))
		return v
	}
	return nil
}

// beginLocked drops the previous slots and selection and starts a fetch for date.
func (p *SlotPicker) beginLocked(date string) uint64 {
	seq := p.invalidateLocked()
	p.date = date
	p.loading = true
	return seq
}

func (p *SlotPicker) load(ctx context.Context, seq uint64, userID int64, date string) error {
	key := slotCacheKey(userID, date)
	raw, cached := p.cache.Get(key)
	if !cached {
		var err error
		raw, err = p.api.Availability(ctx, userID, date)
		if err != nil {
			return p.applyFailure(ctx, seq, err)
		}
		p.cache.Store(key, raw)
	}

	slots := make([]time.Time, 0, len(raw))
	for _, value := range raw {
		slot, err := backend.ParseSlot(value, p.opts.Location)
		if err != nil {
			p.loggerWith(ctx, "SetDate").WarnContext(ctx, "skipping malformed slot", "value", value, "error", err)
			continue
		}
		slots = append(slots, slot)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.seq {
		metrics.StaleResponsesDiscarded.WithLabelValues("availability").Inc()
		return nil
	}
	p.slots = slots
	p.loading = false
	p.lastErr = nil
	return nil
}

func (p *SlotPicker) applyFailure(ctx context.Context, seq uint64, err error) error {
	p.mu.Lock()
	if seq != p.seq {
		p.mu.Unlock()
		metrics.StaleResponsesDiscarded.WithLabelValues("availability").Inc()
		return nil
	}
	p.loading = false
	p.mu.Unlock()

	typed := p.fail(ctx, "load availability", err)

	p.mu.Lock()
	if seq == p.seq {
		p.lastErr = typed
	}
	p.mu.Unlock()
	return typed
}

// Close hides the picker; late responses are dropped.
func (p *SlotPicker) Close() {
	p.mu.Lock()
	p.invalidateLocked()
	p.open = false
	p.date = ""
	p.loading = false
	p.mu.Unlock()
}

func (p *SlotPicker) invalidateLocked() uint64 {
	p.seq++
	p.slots = nil
	p.selected = nil
	p.lastErr = nil
	return p.seq
}

// Select chooses one of the offered slots.
func (p *SlotPicker) Select(slot time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return ErrPickerClosed
	}
	idx := slices.IndexFunc(p.slots, func(s time.Time) bool { return s.Equal(slot) })
	if idx < 0 {
		return ErrSlotUnavailable
	}
	chosen := p.slots[idx]
	p.selected = &chosen
	return nil
}

// Invalidate forgets cached availability. Appointment mutations call it.
func (p *SlotPicker) Invalidate() {
	p.cache.Invalidate()
}

// SlotPickerView is the JSON projection of the picker.
type SlotPickerView struct {
	Open     bool        `json:"open"`
	UserID   int64       `json:"userId,omitempty"`
	Date     string      `json:"date,omitempty"`
	Slots    []time.Time `json:"slots"`
	Selected *time.Time  `json:"selected,omitempty"`
	Loading  bool        `json:"loading"`
	Error    string      `json:"error,omitempty"`
}

func (p *SlotPicker) View() SlotPickerView {
	p.mu.Lock()
	defer p.mu.Unlock()
	view := SlotPickerView{
		Open:    p.open,
		UserID:  p.userID,
		Date:    p.date,
		Slots:   slices.Clone(p.slots),
		Loading: p.loading,
	}
	if view.Slots == nil {
		view.Slots = []time.Time{}
	}
	if p.selected != nil {
		selected := *p.selected
		view.Selected = &selected
	}
	if p.lastErr != nil {
		view.Error = p.lastErr.Error()
	}
	return view
}

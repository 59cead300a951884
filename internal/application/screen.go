package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/example/managerapp/internal/pagination"
)

// ScreenOptions carries the collaborators shared by every resource screen.
type ScreenOptions struct {
	PageSize   int
	Notifier   Notifier
	Translator *Translator
	Logger     *slog.Logger
	Location   *time.Location
	Clock      clockwork.Clock
}

func (o ScreenOptions) withDefaults() ScreenOptions {
	if o.PageSize <= 0 {
		o.PageSize = pagination.DefaultPageSize
	}
	if o.Notifier == nil {
		o.Notifier = NotifierFunc(func(context.Context, Notification) {})
	}
	if o.Translator == nil {
		o.Translator = DefaultTranslator()
	}
	o.Logger = defaultLogger(o.Logger)
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return o
}

// screen holds the error and notification plumbing shared by the resource screens.
type screen struct {
	name string
	opts ScreenOptions
}

func (s screen) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.opts.Logger, s.name, operation, attrs...)
}

func (s screen) notify(ctx context.Context, severity Severity, message string) {
	s.opts.Notifier.Notify(ctx, Notification{
		Severity: severity,
		Message:  message,
		Source:   s.name,
		At:       s.opts.Clock.Now(),
	})
}

// fail classifies err and reports it the way the originating screen expects:
// operation failures become error notifications, validation failures stay on
// the form and expired sessions are left to the sign-in redirect.
func (s screen) fail(ctx context.Context, op string, err error) error {
	typed := s.opts.Translator.Classify(op, err)

	var (
		opErr      *OperationError
		vErr       *ValidationError
		expiredErr *SessionExpiredError
	)
	switch {
	case errors.As(typed, &expiredErr), errors.As(typed, &vErr):
	case errors.As(typed, &opErr):
		s.notify(ctx, SeverityError, opErr.Message)
	default:
		s.notify(ctx, SeverityError, typed.Error())
	}

	s.loggerWith(ctx, op).WarnContext(ctx, "operation failed", "error", typed, "error_kind", ErrorKind(typed))
	return typed
}

// mutate runs op through the loader so the page refreshes once on success.
func mutate[T any](ctx context.Context, s screen, loader *pagination.Loader[T], op string, success string, call func(context.Context) error) error {
	err := loader.Mutate(ctx, func(ctx context.Context) error {
		if err := call(ctx); err != nil {
			return s.fail(ctx, op, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if success != "" {
		s.notify(ctx, SeveritySuccess, success)
	}
	return nil
}

// PageView is the JSON projection of one loaded page.
type PageView[T any] struct {
	Items         []T               `json:"items"`
	PageIndex     int               `json:"pageIndex"`
	PageSize      int               `json:"pageSize"`
	TotalElements int               `json:"totalElements"`
	TotalPages    int               `json:"totalPages"`
	Filters       map[string]string `json:"filters"`
	Loading       bool              `json:"loading"`
	From          int               `json:"from"`
	To            int               `json:"to"`
	CanPrevious   bool              `json:"canPrevious"`
	CanNext       bool              `json:"canNext"`
	Error         string            `json:"error,omitempty"`
}

func pageView[T any](loader *pagination.Loader[T]) PageView[T] {
	state := loader.Snapshot()
	from, to := state.Range()
	view := PageView[T]{
		Items:         state.Items,
		PageIndex:     state.PageIndex,
		PageSize:      state.PageSize,
		TotalElements: state.TotalElements,
		TotalPages:    state.TotalPages,
		Filters:       state.Filters,
		Loading:       state.Loading,
		From:          from,
		To:            to,
		CanPrevious:   state.CanPrevious(),
		CanNext:       state.CanNext(),
	}
	if state.Err != nil {
		view.Error = state.Err.Error()
	}
	return view
}

// loaderErrorHandler reports fetch failures from a loader. The fetcher has
// already classified the error.
func (s screen) loaderErrorHandler() func(context.Context, error) {
	return func(ctx context.Context, err error) {
		var (
			opErr      *OperationError
			expiredErr *SessionExpiredError
		)
		switch {
		case errors.As(err, &expiredErr):
		case errors.As(err, &opErr):
			s.notify(ctx, SeverityError, opErr.Message)
		default:
			s.notify(ctx, SeverityError, err.Error())
		}
	}
}

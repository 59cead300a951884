package application

import (
	"context"
	"errors"

	"github.com/example/managerapp/internal/backend"
	"github.com/example/managerapp/internal/pagination"
	"github.com/example/managerapp/internal/workweek"
)

const (
	workingPeriodsPageSize = 7
	workingPeriodsSort     = "dayOfWeek"
)

// WorkingPeriodsBackend is the part of the REST client the working periods screen needs.
type WorkingPeriodsBackend interface {
	ListWorkingPeriods(ctx context.Context, req backend.PageRequest) (backend.Page[backend.WorkingPeriod], error)
	CreateWorkingPeriod(ctx context.Context, in backend.WorkingPeriodCreate) (backend.WorkingPeriod, error)
	UpdateWorkingPeriod(ctx context.Context, id int64, in backend.WorkingPeriodUpdate) (backend.WorkingPeriod, error)
	DeleteWorkingPeriod(ctx context.Context, id int64) error
}

// WorkingPeriodsScreen edits the weekly availability of the signed-in professional.
type WorkingPeriodsScreen struct {
	screen
	api    WorkingPeriodsBackend
	loader *pagination.Loader[backend.WorkingPeriod]
}

func NewWorkingPeriodsScreen(api WorkingPeriodsBackend, opts ScreenOptions) *WorkingPeriodsScreen {
	s := &WorkingPeriodsScreen{
		screen: screen{name: "WorkingPeriodsScreen", opts: opts.withDefaults()},
		api:    api,
	}
	s.loader = pagination.NewLoader("working_periods", s.fetch,
		pagination.WithPageSize(workingPeriodsPageSize),
		pagination.WithErrorHandler(s.loaderErrorHandler()),
		pagination.WithLogger(s.opts.Logger),
	)
	return s
}

func (s *WorkingPeriodsScreen) fetch(ctx context.Context, q pagination.Query) (pagination.Result[backend.WorkingPeriod], error) {
	page, err := s.api.ListWorkingPeriods(ctx, backend.PageRequest{Page: q.PageIndex, Size: q.PageSize, Sort: workingPeriodsSort, Filters: q.Filters})
	if err != nil {
		return pagination.Result[backend.WorkingPeriod]{}, s.opts.Translator.Classify("list working periods", err)
	}
	return pagination.Result[backend.WorkingPeriod]{Items: page.Content, TotalElements: page.TotalElements, TotalPages: page.TotalPages}, nil
}

func (s *WorkingPeriodsScreen) Loader() *pagination.Loader[backend.WorkingPeriod] {
	return s.loader
}

func (s *WorkingPeriodsScreen) Load(ctx context.Context) error {
	return s.loader.Refresh(ctx)
}

// Week projects the loaded page onto the seven editor rows.
func (s *WorkingPeriodsScreen) Week() workweek.Week {
	return workweek.Project(s.loader.Snapshot().Items)
}

func (s *WorkingPeriodsScreen) Create(ctx context.Context, in backend.WorkingPeriodCreate) error {
	return mutate(ctx, s.screen, s.loader, "create working period", "", func(ctx context.Context) error {
		_, err := s.api.CreateWorkingPeriod(ctx, in)
		return err
	})
}

func (s *WorkingPeriodsScreen) Update(ctx context.Context, id int64, in backend.WorkingPeriodUpdate) error {
	return mutate(ctx, s.screen, s.loader, "update working period", "", func(ctx context.Context) error {
		_, err := s.api.UpdateWorkingPeriod(ctx, id, in)
		return err
	})
}

func (s *WorkingPeriodsScreen) Delete(ctx context.Context, id int64) error {
	return mutate(ctx, s.screen, s.loader, "delete working period", "", func(ctx context.Context) error {
		return s.api.DeleteWorkingPeriod(ctx, id)
	})
}

// SaveWeek persists an edited week as one mutation: every planned create,
// update and delete runs, then the page refreshes once. Invalid windows are
// rejected before any call is made.
func (s *WorkingPeriodsScreen) SaveWeek(ctx context.Context, week workweek.Week) error {
	if err := week.Validate(); err != nil {
		s.notify(ctx, SeverityWarning, err.Error())
		return err
	}

	plan := week.Plan()
	err := s.loader.Mutate(ctx, func(ctx context.Context) error {
		for _, create := range plan.Creates {
			if _, err := s.api.CreateWorkingPeriod(ctx, create); err != nil {
				return s.saveFailed(ctx, err)
			}
		}
		for _, update := range plan.Updates {
			if _, err := s.api.UpdateWorkingPeriod(ctx, update.ID, update.Payload); err != nil {
				return s.saveFailed(ctx, err)
			}
		}
		for _, id := range plan.Deletes {
			if err := s.api.DeleteWorkingPeriod(ctx, id); err != nil {
				return s.saveFailed(ctx, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notify(ctx, SeveritySuccess, "Disponibilidade salva com sucesso!")
	return nil
}

func (s *WorkingPeriodsScreen) saveFailed(ctx context.Context, err error) error {
	typed := s.opts.Translator.Classify("save working periods", err)
	var expired *SessionExpiredError
	if !errors.As(typed, &expired) {
		s.notify(ctx, SeverityError, "Erro ao salvar disponibilidade. Tente novamente.")
	}
	s.loggerWith(ctx, "SaveWeek").WarnContext(ctx, "saving week failed", "error", typed, "error_kind", ErrorKind(typed))
	return typed
}

// WorkingPeriodsView is the JSON projection of the screen.
type WorkingPeriodsView struct {
	Week    workweek.Week `json:"week"`
	Loading bool          `json:"loading"`
	Error   string        `json:"error,omitempty"`
}

func (s *WorkingPeriodsScreen) View() WorkingPeriodsView {
	state := s.loader.Snapshot()
	view := WorkingPeriodsView{Week: workweek.Project(state.Items), Loading: state.Loading}
	if state.Err != nil {
		view.Error = state.Err.Error()
	}
	return view
}

package application

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/example/managerapp/internal/backend"
	"github.com/example/managerapp/internal/pagination"
)

// Appointment list filters.
const (
	FilterClientID      = "clientId"
	FilterStatus        = "status"
	FilterStartDateTime = "startDateTime"
	FilterEndDateTime   = "endDateTime"
)

// filterTimeLayout is the local date-time format the backend accepts for range filters.
const filterTimeLayout = "2006-01-02T15:04:05"

// AppointmentsBackend is the part of the REST client the appointments screen needs.
type AppointmentsBackend interface {
	ListAppointments(ctx context.Context, req backend.PageRequest) (backend.Page[backend.Appointment], error)
	CreateAppointment(ctx context.Context, in backend.AppointmentCreate) (backend.Appointment, error)
	UpdateAppointment(ctx context.Context, id int64, in backend.AppointmentUpdate) (backend.Appointment, error)
	CancelAppointment(ctx context.Context, id int64) error
	CompleteAppointment(ctx context.Context, id int64) error
	MarkNoShow(ctx context.Context, id int64) error
}

// AppointmentForm captures the fields of the new-appointment dialog.
type AppointmentForm struct {
	Title       string
	Description string
	DateTime    time.Time
	ClientID    int64
}

// AppointmentEdit captures the editable fields of an existing appointment.
type AppointmentEdit struct {
	Description string
	DateTime    time.Time
}

// AppointmentsScreen lists appointments and applies status transitions.
// The calendar's selected day is a projection of the date-range filters.
type AppointmentsScreen struct {
	screen
	api       AppointmentsBackend
	loader    *pagination.Loader[backend.Appointment]
	onMutated []func()
}

// NewAppointmentsScreen constructs the screen. Nothing is fetched until Load.
func NewAppointmentsScreen(api AppointmentsBackend, opts ScreenOptions) *AppointmentsScreen {
	s := &AppointmentsScreen{
		screen: screen{name: "AppointmentsScreen", opts: opts.withDefaults()},
		api:    api,
	}
	s.loader = pagination.NewLoader("appointments", s.fetch,
		pagination.WithPageSize(s.opts.PageSize),
		pagination.WithErrorHandler(s.loaderErrorHandler()),
		pagination.WithLogger(s.opts.Logger),
	)
	return s
}

// OnMutated registers a callback run after every successful mutation.
func (s *AppointmentsScreen) OnMutated(fn func()) {
	s.onMutated = append(s.onMutated, fn)
}

func (s *AppointmentsScreen) fetch(ctx context.Context, q pagination.Query) (pagination.Result[backend.Appointment], error) {
	page, err := s.api.ListAppointments(ctx, backend.PageRequest{Page: q.PageIndex, Size: q.PageSize, Filters: q.Filters})
	if err != nil {
		return pagination.Result[backend.Appointment]{}, s.opts.Translator.Classify("list appointments", err)
	}
	return pagination.Result[backend.Appointment]{Items: page.Content, TotalElements: page.TotalElements, TotalPages: page.TotalPages}, nil
}

// Loader exposes the underlying page loader.
func (s *AppointmentsScreen) Loader() *pagination.Loader[backend.Appointment] {
	return s.loader
}

func (s *AppointmentsScreen) Load(ctx context.Context) error {
	return s.loader.Refresh(ctx)
}

// SetFilter applies one of the appointment filters. An empty value clears it.
func (s *AppointmentsScreen) SetFilter(ctx context.Context, name, value string) error {
	switch name {
	case FilterClientID, FilterStatus, FilterStartDateTime, FilterEndDateTime:
	default:
		v := &ValidationError{}
		v.add(name, fmt.Sprintf("unknown filter %q", name))
		return v
	}
	return s.loader.SetFilter(ctx, name, value)
}

// FilterByClient restricts the list to one client; zero clears the filter.
func (s *AppointmentsScreen) FilterByClient(ctx context.Context, clientID int64) error {
	value := ""
	if clientID > 0 {
		value = strconv.FormatInt(clientID, 10)
	}
	return s.loader.SetFilter(ctx, FilterClientID, value)
}

// FilterByStatus restricts the list to one status; "" clears the filter.
func (s *AppointmentsScreen) FilterByStatus(ctx context.Context, status backend.AppointmentStatus) error {
	return s.loader.SetFilter(ctx, FilterStatus, string(status))
}

// SelectDay narrows the list to one calendar day in a single transition.
func (s *AppointmentsScreen) SelectDay(ctx context.Context, day time.Time) error {
	return s.loader.SetFilters(ctx, s.dayFilters(day))
}

// SelectDate is SelectDay for a YYYY-MM-DD value read in the screen's location.
func (s *AppointmentsScreen) SelectDate(ctx context.Context, date string) error {
	filters, err := s.DateFilters(date)
	if err != nil {
		return err
	}
	return s.loader.SetFilters(ctx, filters)
}

// ClearDay removes the day selection.
func (s *AppointmentsScreen) ClearDay(ctx context.Context) error {
	return s.loader.SetFilters(ctx, map[string]string{FilterStartDateTime: "", FilterEndDateTime: ""})
}

// DateFilters returns the range filters selecting a YYYY-MM-DD day, or the
// values that clear the selection when date is empty. Nothing is fetched, so
// callers can fold the result into a wider loader change.
func (s *AppointmentsScreen) DateFilters(date string) (map[string]string, error) {
	if date == "" {
		return map[string]string{FilterStartDateTime: "", FilterEndDateTime: ""}, nil
	}
	day, err := time.ParseInLocation(time.DateOnly, date, s.opts.Location)
	if err != nil {
		v := &ValidationError{}
		v.add("day", fmt.Sprintf("data inválida: %q", date))
		return nil, v
	}
	return s.dayFilters(day), nil
}

func (s *AppointmentsScreen) dayFilters(day time.Time) map[string]string {
	start, end := dayBounds(day.In(s.opts.Location))
	return map[string]string{
		FilterStartDateTime: start.Format(filterTimeLayout),
		FilterEndDateTime:   end.Format(filterTimeLayout),
	}
}

// SelectedDay derives the calendar selection from the current filters.
func (s *AppointmentsScreen) SelectedDay() (time.Time, bool) {
	filters := s.loader.Query().Filters
	start, err := time.ParseInLocation(filterTimeLayout, filters[FilterStartDateTime], s.opts.Location)
	if err != nil {
		return time.Time{}, false
	}
	end, err := time.ParseInLocation(filterTimeLayout, filters[FilterEndDateTime], s.opts.Location)
	if err != nil {
		return time.Time{}, false
	}
	dayStart, dayEnd := dayBounds(start)
	if !start.Equal(dayStart) || !end.Equal(dayEnd) {
		return time.Time{}, false
	}
	return dayStart, true
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1).Add(-time.Second)
	return start, end
}

func (s *AppointmentsScreen) Create(ctx context.Context, form AppointmentForm) error {
	return s.mutate(ctx, "create appointment", "Agendamento criado com sucesso!", func(ctx context.Context) error {
		_, err := s.api.CreateAppointment(ctx, backend.AppointmentCreate{
			Title:       form.Title,
			Description: form.Description,
			DateTime:    form.DateTime,
			ClientID:    form.ClientID,
		})
		return err
	})
}

func (s *AppointmentsScreen) Update(ctx context.Context, id int64, edit AppointmentEdit) error {
	return s.mutate(ctx, "update appointment", "Agendamento atualizado com sucesso!", func(ctx context.Context) error {
		_, err := s.api.UpdateAppointment(ctx, id, backend.AppointmentUpdate{Description: edit.Description, DateTime: edit.DateTime})
		return err
	})
}

func (s *AppointmentsScreen) Cancel(ctx context.Context, id int64) error {
	return s.mutate(ctx, "cancel appointment", "Agendamento cancelado!", func(ctx context.Context) error {
		return s.api.CancelAppointment(ctx, id)
	})
}

func (s *AppointmentsScreen) Complete(ctx context.Context, id int64) error {
	return s.mutate(ctx, "complete appointment", "Agendamento concluído!", func(ctx context.Context) error {
		return s.api.CompleteAppointment(ctx, id)
	})
}

func (s *AppointmentsScreen) NoShow(ctx context.Context, id int64) error {
	return s.mutate(ctx, "mark no-show", "Marcado como 'Não Compareceu'.", func(ctx context.Context) error {
		return s.api.MarkNoShow(ctx, id)
	})
}

func (s *AppointmentsScreen) mutate(ctx context.Context, op, success string, call func(context.Context) error) error {
	if err := mutate(ctx, s.screen, s.loader, op, success, call); err != nil {
		return err
	}
	for _, fn := range s.onMutated {
		fn()
	}
	return nil
}

// AppointmentsView is the JSON projection of the screen.
type AppointmentsView struct {
	PageView[backend.Appointment]
	SelectedDay string `json:"selectedDay,omitempty"`
}

func (s *AppointmentsScreen) View() AppointmentsView {
	view := AppointmentsView{PageView: pageView(s.loader)}
	if day, ok := s.SelectedDay(); ok {
		view.SelectedDay = day.Format(time.DateOnly)
	}
	return view
}

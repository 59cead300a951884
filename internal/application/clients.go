package application

import (
	"context"
	"strings"

	"github.com/example/managerapp/internal/backend"
	"github.com/example/managerapp/internal/pagination"
)

// FilterName narrows the client list by name.
const FilterName = "name"

// ClientsBackend is the part of the REST client the clients screen needs.
type ClientsBackend interface {
	ListClients(ctx context.Context, req backend.PageRequest) (backend.Page[backend.Client], error)
	CreateClient(ctx context.Context, in backend.ClientInput) (backend.Client, error)
	UpdateClient(ctx context.Context, id int64, in backend.ClientInput) (backend.Client, error)
	DeleteClient(ctx context.Context, id int64) error
}

// ClientForm captures the client dialog fields.
type ClientForm struct {
	Name     string
	Email    string
	Phone    string
	Document string
}

// validate applies the dialog's own check; everything else is the backend's call.
func (f ClientForm) validate() error {
	if strings.TrimSpace(f.Name) == "" {
		v := &ValidationError{}
		v.add("name", "Nome é obrigatório")
		return v
	}
	return nil
}

func (f ClientForm) input() backend.ClientInput {
	return backend.ClientInput{
		Name:     strings.TrimSpace(f.Name),
		Email:    strings.TrimSpace(f.Email),
		Phone:    strings.TrimSpace(f.Phone),
		Document: strings.TrimSpace(f.Document),
	}
}

// ClientsScreen lists and edits clients.
type ClientsScreen struct {
	screen
	api    ClientsBackend
	loader *pagination.Loader[backend.Client]
}

func NewClientsScreen(api ClientsBackend, opts ScreenOptions) *ClientsScreen {
	s := &ClientsScreen{
		screen: screen{name: "ClientsScreen", opts: opts.withDefaults()},
		api:    api,
	}
	s.loader = pagination.NewLoader("clients", s.fetch,
		pagination.WithPageSize(s.opts.PageSize),
		pagination.WithErrorHandler(s.loaderErrorHandler()),
		pagination.WithLogger(s.opts.Logger),
	)
	return s
}

func (s *ClientsScreen) fetch(ctx context.Context, q pagination.Query) (pagination.Result[backend.Client], error) {
	page, err := s.api.ListClients(ctx, backend.PageRequest{Page: q.PageIndex, Size: q.PageSize, Filters: q.Filters})
	if err != nil {
		return pagination.Result[backend.Client]{}, s.opts.Translator.Classify("list clients", err)
	}
	return pagination.Result[backend.Client]{Items: page.Content, TotalElements: page.TotalElements, TotalPages: page.TotalPages}, nil
}

func (s *ClientsScreen) Loader() *pagination.Loader[backend.Client] {
	return s.loader
}

func (s *ClientsScreen) Load(ctx context.Context) error {
	return s.loader.Refresh(ctx)
}

// Search filters by name; an empty query shows every client.
func (s *ClientsScreen) Search(ctx context.Context, name string) error {
	return s.loader.SetFilter(ctx, FilterName, strings.TrimSpace(name))
}

func (s *ClientsScreen) Create(ctx context.Context, form ClientForm) error {
	if err := form.validate(); err != nil {
		return err
	}
	return mutate(ctx, s.screen, s.loader, "create client", "Cliente cadastrado com sucesso!", func(ctx context.Context) error {
		_, err := s.api.CreateClient(ctx, form.input())
		return err
	})
}

func (s *ClientsScreen) Update(ctx context.Context, id int64, form ClientForm) error {
	if err := form.validate(); err != nil {
		return err
	}
	return mutate(ctx, s.screen, s.loader, "update client", "Cliente atualizado com sucesso!", func(ctx context.Context) error {
		_, err := s.api.UpdateClient(ctx, id, form.input())
		return err
	})
}

func (s *ClientsScreen) Delete(ctx context.Context, id int64) error {
	return mutate(ctx, s.screen, s.loader, "delete client", "Cliente excluído com sucesso!", func(ctx context.Context) error {
		return s.api.DeleteClient(ctx, id)
	})
}

func (s *ClientsScreen) View() PageView[backend.Client] {
	return pageView(s.loader)
}

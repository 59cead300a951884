package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/example/managerapp/internal/application"
	"github.com/example/managerapp/internal/backend"
	"github.com/example/managerapp/internal/config"
	"github.com/example/managerapp/internal/logging"
	"github.com/example/managerapp/internal/pagination"
)

// keyPassword lets scripts pass the sign-in secret without a flag.
const keyPassword = "MANAGERAPP_PASSWORD"

// environment is everything the commands take from the process.
type environment struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	clock  clockwork.Clock
}

func defaultEnvironment() environment {
	return environment{stdout: os.Stdout, stderr: os.Stderr, getenv: os.Getenv, clock: clockwork.NewRealClock()}
}

type cli struct {
	env        environment
	configFile string
	envFile    string
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCommand(env environment) *cobra.Command {
	c := &cli{env: env}

	root := &cobra.Command{
		Use:           "managerapp",
		Short:         "Console for the ManagerApp scheduling backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
	}
	root.SetOut(env.stdout)
	root.SetErr(env.stderr)

	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "YAML config file (default $"+config.KeyConfigFile+")")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file read before the environment")

	root.AddCommand(
		c.serveCommand(),
		c.loginCommand(),
		c.logoutCommand(),
		c.whoamiCommand(),
		c.appointmentsCommand(),
		c.clientsCommand(),
		c.workingPeriodsCommand(),
		c.availabilityCommand(),
		c.migrateCommand(),
	)
	return root
}

func (c *cli) load() error {
	configFile := c.configFile
	if configFile == "" && c.env.getenv != nil {
		configFile = c.env.getenv(config.KeyConfigFile)
	}
	cfg, err := config.LoadFrom(config.Sources{ConfigFile: configFile, EnvFile: c.envFile, Getenv: c.env.getenv})
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logging.New(cfg.LogLevel, cfg.LogFormat, c.env.stderr)
	return nil
}

// withApp runs fn against a freshly wired console and prints the
// notifications it produced.
func (c *cli) withApp(ctx context.Context, fn func(*app) error) error {
	a, err := newApp(ctx, c.cfg, c.logger, c.env.clock)
	if err != nil {
		return err
	}
	defer a.Close()

	err = fn(a)
	for _, note := range a.notes.Drain() {
		fmt.Fprintf(c.env.stderr, "[%s] %s\n", note.Severity, note.Message)
	}
	return err
}

// guarded is withApp for commands that need a valid session.
func (c *cli) guarded(ctx context.Context, target string, fn func(*app) error) error {
	return c.withApp(ctx, func(a *app) error {
		if err := a.requireSession(ctx, target); err != nil {
			return err
		}
		return fn(a)
	})
}

func (c *cli) print(value any) error {
	encoder := json.NewEncoder(c.env.stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func (c *cli) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local console server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return c.withApp(ctx, func(a *app) error {
				a.session.Initialize(ctx)

				server := &http.Server{
					Addr:              c.cfg.Address(),
					Handler:           a.router(),
					ReadHeaderTimeout: 10 * time.Second,
					ReadTimeout:       30 * time.Second,
					WriteTimeout:      30 * time.Second,
					IdleTimeout:       60 * time.Second,
				}

				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
						c.logger.Error("failed to shutdown server", "error", err)
					}
				}()

				c.logger.Info("console listening", "addr", server.Addr, "api", c.cfg.APIURL)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
}

func (c *cli) loginCommand() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" && c.env.getenv != nil {
				password = c.env.getenv(keyPassword)
			}
			if strings.TrimSpace(username) == "" || password == "" {
				return fmt.Errorf("informe --username e --password (ou %s)", keyPassword)
			}
			return c.withApp(cmd.Context(), func(a *app) error {
				if err := a.session.SignIn(cmd.Context(), strings.TrimSpace(username), password); err != nil {
					return err
				}
				return c.print(a.session.CurrentUser())
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account e-mail")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (default $"+keyPassword+")")
	return cmd
}

func (c *cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the persisted session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *app) error {
				a.session.Initialize(cmd.Context())
				a.session.SignOut(cmd.Context())
				fmt.Fprintln(c.env.stdout, "sessão encerrada")
				return nil
			})
		},
	}
}

func (c *cli) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in profile and token expiry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.guarded(cmd.Context(), "/session", func(a *app) error {
				out := whoamiOutput{User: a.session.CurrentUser()}
				if claims, ok := a.session.Claims(); ok && claims.HasExpiry() {
					out.ExpiresAt = claims.ExpiresAt.UTC().Format(time.RFC3339)
				}
				return c.print(out)
			})
		},
	}
}

type whoamiOutput struct {
	User      *backend.User `json:"user"`
	ExpiresAt string        `json:"expiresAt,omitempty"`
}

func (c *cli) appointmentsCommand() *cobra.Command {
	var (
		page, size  int
		status, day string
		clientID    int64
	)
	cmd := &cobra.Command{
		Use:   "appointments",
		Short: "List appointments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return c.guarded(ctx, "/appointments", func(a *app) error {
				change := listChange(page, size)
				change.Filters = map[string]string{application.FilterStatus: strings.ToUpper(status), application.FilterClientID: ""}
				if clientID > 0 {
					change.Filters[application.FilterClientID] = strconv.FormatInt(clientID, 10)
				}
				if day != "" {
					dayFilters, err := a.appointments.DateFilters(day)
					if err != nil {
						return describe(err)
					}
					maps.Copy(change.Filters, dayFilters)
				}
				if err := a.appointments.Loader().Apply(ctx, change); err != nil {
					return err
				}
				return c.print(a.appointments.View())
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "zero-based page index")
	cmd.Flags().IntVar(&size, "size", 0, "page size (default from config)")
	cmd.Flags().StringVar(&status, "status", "", "SCHEDULED, CANCELED, DONE or NO_SHOW")
	cmd.Flags().Int64Var(&clientID, "client", 0, "client id")
	cmd.Flags().StringVar(&day, "day", "", "calendar day (YYYY-MM-DD)")

	cmd.AddCommand(
		c.appointmentCreateCommand(),
		c.appointmentTransitionCommand("cancel", "Cancel a scheduled appointment", func(a *app) func(context.Context, int64) error { return a.appointments.Cancel }),
		c.appointmentTransitionCommand("done", "Mark an appointment as done", func(a *app) func(context.Context, int64) error { return a.appointments.Complete }),
		c.appointmentTransitionCommand("no-show", "Mark an appointment as no-show", func(a *app) func(context.Context, int64) error { return a.appointments.NoShow }),
	)
	return cmd
}

func (c *cli) appointmentCreateCommand() *cobra.Command {
	var (
		title, description, at string
		clientID               int64
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Schedule an appointment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			when, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return fmt.Errorf("--at deve estar no formato RFC3339: %w", err)
			}
			ctx := cmd.Context()
			return c.guarded(ctx, "/appointments", func(a *app) error {
				form := application.AppointmentForm{Title: title, Description: description, DateTime: when, ClientID: clientID}
				if err := a.appointments.Create(ctx, form); err != nil {
					return describe(err)
				}
				return c.print(a.appointments.View())
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "appointment title")
	cmd.Flags().StringVar(&description, "description", "", "appointment description")
	cmd.Flags().StringVar(&at, "at", "", "date and time (RFC3339)")
	cmd.Flags().Int64Var(&clientID, "client", 0, "client id")
	return cmd
}

func (c *cli) appointmentTransitionCommand(use, short string, pick func(*app) func(context.Context, int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return c.guarded(ctx, "/appointments", func(a *app) error {
				if err := a.appointments.Load(ctx); err != nil {
					return err
				}
				if err := pick(a)(ctx, id); err != nil {
					return describe(err)
				}
				return c.print(a.appointments.View())
			})
		},
	}
}

func (c *cli) clientsCommand() *cobra.Command {
	var (
		page, size int
		name       string
	)
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "List clients",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return c.guarded(ctx, "/clients", func(a *app) error {
				change := listChange(page, size)
				change.Filters = map[string]string{application.FilterName: strings.TrimSpace(name)}
				if err := a.clients.Loader().Apply(ctx, change); err != nil {
					return err
				}
				return c.print(a.clients.View())
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "zero-based page index")
	cmd.Flags().IntVar(&size, "size", 0, "page size (default from config)")
	cmd.Flags().StringVar(&name, "name", "", "filter by name")
	cmd.AddCommand(c.clientCreateCommand(), c.clientDeleteCommand())
	return cmd
}

func (c *cli) clientCreateCommand() *cobra.Command {
	var form application.ClientForm
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a client",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return c.guarded(ctx, "/clients", func(a *app) error {
				if err := a.clients.Create(ctx, form); err != nil {
					return describe(err)
				}
				return c.print(a.clients.View())
			})
		},
	}
	cmd.Flags().StringVar(&form.Name, "name", "", "client name")
	cmd.Flags().StringVar(&form.Email, "email", "", "client e-mail")
	cmd.Flags().StringVar(&form.Phone, "phone", "", "client phone")
	cmd.Flags().StringVar(&form.Document, "document", "", "client document")
	return cmd
}

func (c *cli) clientDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return c.guarded(ctx, "/clients", func(a *app) error {
				if err := a.clients.Delete(ctx, id); err != nil {
					return describe(err)
				}
				return c.print(a.clients.View())
			})
		},
	}
}

func (c *cli) workingPeriodsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "working-periods",
		Short: "Show the weekly availability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return c.guarded(ctx, "/working-periods", func(a *app) error {
				if err := a.periods.Load(ctx); err != nil {
					return err
				}
				return c.print(a.periods.View())
			})
		},
	}

	var start, end string
	set := &cobra.Command{
		Use:   "set <day>",
		Short: "Enable a day with the given hours",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editWeek(cmd.Context(), args[0], true, start, end)
		},
	}
	set.Flags().StringVar(&start, "start", "", "start time (HH:MM)")
	set.Flags().StringVar(&end, "end", "", "end time (HH:MM)")

	disable := &cobra.Command{
		Use:   "disable <day>",
		Short: "Disable a day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editWeek(cmd.Context(), args[0], false, "", "")
		},
	}

	cmd.AddCommand(set, disable)
	return cmd
}

func (c *cli) editWeek(ctx context.Context, day string, enabled bool, start, end string) error {
	return c.guarded(ctx, "/working-periods", func(a *app) error {
		if err := a.periods.Load(ctx); err != nil {
			return err
		}
		week := a.periods.Week()
		if err := week.SetEnabled(day, enabled); err != nil {
			return err
		}
		if start != "" || end != "" {
			if err := week.SetHours(day, start, end); err != nil {
				return err
			}
		}
		if err := a.periods.SaveWeek(ctx, week); err != nil {
			return describe(err)
		}
		return c.print(a.periods.View())
	})
}

func (c *cli) availabilityCommand() *cobra.Command {
	var (
		date   string
		userID int64
	)
	cmd := &cobra.Command{
		Use:   "availability",
		Short: "List the open slots of a day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return c.guarded(ctx, "/availability", func(a *app) error {
				id := userID
				if id == 0 {
					user := a.session.CurrentUser()
					if user == nil {
						return application.ErrNotSignedIn
					}
					id = user.ID
				}
				if err := a.picker.Open(ctx, id, date); err != nil {
					return describe(err)
				}
				return c.print(a.picker.View())
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&userID, "user", 0, "professional id (default: signed-in user)")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func (c *cli) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply token store migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.RedisURL != "" {
				fmt.Fprintln(c.env.stdout, "redis token store needs no migrations")
				return nil
			}
			return runDatabaseMigrations(cmd.Context(), c.cfg.TokenDB, c.logger)
		},
	}
}

// listChange turns the --page and --size flags into one loader change.
func listChange(page, size int) pagination.Change {
	change := pagination.Change{PageSize: size}
	if page > 0 {
		change.PageIndex = &page
	}
	return change
}

func parseIDArg(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("identificador inválido: %q", raw)
	}
	return id, nil
}

// describe expands validation failures into their field messages.
func describe(err error) error {
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) || len(vErr.FieldErrors) == 0 {
		return err
	}
	parts := make([]string, 0, len(vErr.FieldErrors))
	for _, fe := range vErr.FieldErrors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return errors.New(strings.Join(parts, "; "))
}

// sessionctl is a terminal shell around the Plate Market session engine:
// it signs in, inspects the persisted session, answers capability
// questions, and signs out, using the same engine the GUI clients embed.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/platemarket/sessioncore"
	"github.com/platemarket/sessioncore/guard"
	"github.com/platemarket/sessioncore/permission"
	"github.com/platemarket/sessioncore/store"
	"github.com/platemarket/sessioncore/transport"
)

type appConfig struct {
	APIBaseURL  string `env:"PLATEMARKET_API_URL, default=http://localhost:8080/api/v1"`
	RedisAddr   string `env:"PLATEMARKET_REDIS_ADDR, default=localhost:6379"`
	RedisDB     int    `env:"PLATEMARKET_REDIS_DB, default=0"`
	StorePrefix string `env:"PLATEMARKET_STORE_PREFIX, default=sessionctl"`
	LogLevel    string `env:"PLATEMARKET_LOG_LEVEL, default=warn"`
	Pretty      bool   `env:"PLATEMARKET_LOG_PRETTY, default=true"`
}

type app struct {
	cfg     appConfig
	logger  zerolog.Logger
	rdb     *redis.Client
	machine *sessioncore.Machine
	guard   *guard.Guard
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sessionctl:", err)
		os.Exit(1)
	}
}

func run() error {
	// Best-effort: a missing .env is the normal case outside development.
	_ = godotenv.Load()

	var cfg appConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	a := &app{cfg: cfg, logger: newLogger(cfg)}

	root := &cobra.Command{
		Use:           "sessionctl",
		Short:         "Inspect and drive a Plate Market client session",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.teardown()
		},
	}

	root.AddCommand(a.loginCmd(), a.statusCmd(), a.canCmd(), a.logoutCmd())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return root.ExecuteContext(ctx)
}

func newLogger(cfg appConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.WarnLevel
	}

	var out = os.Stderr
	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func (a *app) setup(ctx context.Context) error {
	a.rdb = redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr, DB: a.cfg.RedisDB})

	kv := store.NewRedis(a.rdb)
	tokens := store.New(kv, a.cfg.StorePrefix)

	client := transport.NewClient(a.cfg.APIBaseURL,
		transport.WithLogger(a.logger),
		transport.WithTokenSource(func(ctx context.Context) (string, bool) {
			return tokens.Get(ctx)
		}),
	)

	machine, err := sessioncore.New().
		WithConfig(sessioncore.Config{
			Store:  sessioncore.StoreConfig{Prefix: a.cfg.StorePrefix},
			Notify: sessioncore.NotifyConfig{Enabled: true, BufferSize: 16, DropIfFull: true},
		}).
		WithKeyValue(kv).
		WithTransport(client).
		WithNotifySink(sessioncore.LogSink{Logger: a.logger}).
		WithLogger(a.logger).
		Build()
	if err != nil {
		return fmt.Errorf("build session machine: %w", err)
	}

	a.machine = machine
	a.guard = guard.New(machine.Table())

	if err := machine.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize session: %w", err)
	}
	return nil
}

func (a *app) teardown() {
	if a.machine != nil {
		a.machine.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}

func (a *app) loginCmd() *cobra.Command {
	var identifier, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := a.machine.Login(cmd.Context(), sessioncore.Credentials{
				Identifier: identifier,
				Password:   password,
			})
			if err != nil {
				return err
			}
			return a.printSnapshot(cmd)
		},
	}

	cmd.Flags().StringVarP(&identifier, "identifier", "i", "", "phone or email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("identifier")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the current session snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.printSnapshot(cmd)
		},
	}
}

func (a *app) canCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "can <capability> [capability...]",
		Short: "Decide whether the session may exercise any of the capabilities",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caps := make([]permission.Capability, 0, len(args))
			for _, arg := range args {
				caps = append(caps, permission.Capability(arg))
			}

			decision := a.guard.Decide(a.machine.Snapshot(), guard.Route{
				Path:         "/" + args[0],
				Capabilities: caps,
			})

			switch decision.Kind {
			case guard.Allow:
				cmd.Println("allow")
			case guard.Pending:
				cmd.Println("pending")
			default:
				cmd.Printf("deny (redirect to %s)\n", decision.RedirectPath)
			}
			return nil
		},
	}
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the persisted session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.machine.Logout(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("signed out")
			return nil
		},
	}
}

func (a *app) printSnapshot(cmd *cobra.Command) error {
	snap := a.machine.Snapshot()

	view := struct {
		State           string                  `json:"state"`
		IsAuthenticated bool                    `json:"is_authenticated"`
		Role            string                  `json:"role,omitempty"`
		SessionID       string                  `json:"session_id,omitempty"`
		User            *sessioncore.UserRecord `json:"user,omitempty"`
		Grants          []permission.Capability `json:"grants,omitempty"`
		LastError       string                  `json:"last_error,omitempty"`
	}{
		State:           snap.State.String(),
		IsAuthenticated: snap.IsAuthenticated,
		Role:            snap.Role.String(),
		SessionID:       snap.SessionID,
		User:            snap.User,
		Grants:          a.machine.Table().Grants(snap.Role),
	}
	if snap.LastError != nil {
		view.LastError = snap.LastError.Error()
	}

	blob, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(blob))
	return nil
}

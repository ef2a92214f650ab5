// Package cli implements the unotes CLI commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/unotes/internal/authclient"
	"github.com/rcliao/unotes/internal/config"
	"github.com/rcliao/unotes/internal/httpapi"
	"github.com/rcliao/unotes/internal/logging"
	"github.com/rcliao/unotes/internal/noteclient"
	"github.com/rcliao/unotes/internal/notes"
	"github.com/rcliao/unotes/internal/session"
	"github.com/rcliao/unotes/internal/store"
)

type globalFlags struct {
	configPath string
	dbPath     string
	authURL    string
	noteURL    string
	logLevel   string
	format     string
}

// app holds everything a command needs. It is built in PersistentPreRunE so
// flags are parsed before config is resolved.
type app struct {
	flags     globalFlags
	dotenvDir string
	stdin     io.Reader
	stderr    io.Writer

	cfg      *config.Config
	logger   *slog.Logger
	db       *store.SQLiteStore
	tokens   store.TokenStore
	auth     *authclient.Client
	notesAPI *noteclient.Client
	resolver *session.Resolver
	manager  *notes.Manager
}

// cmdError carries the failing operation for the "error: op: err" line.
type cmdError struct {
	op  string
	err error
}

func (e *cmdError) Error() string { return fmt.Sprintf("%s: %v", e.op, e.err) }
func (e *cmdError) Unwrap() error { return e.err }

func fail(op string, err error) error {
	return &cmdError{op: op, err: err}
}

// NewRootCmd builds the command tree. The returned close func releases the
// session store after Execute.
func NewRootCmd() (*cobra.Command, func()) {
	a := &app{dotenvDir: ".", stdin: os.Stdin, stderr: os.Stderr}
	root := a.rootCmd()
	return root, a.close
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "unotes",
		Short: "Notes client for the Unotes services",
		Long:  "A small CLI for Unotes. Signs in once, keeps the session fresh, prints JSON.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.flags.configPath, "config", "c", "", "Config file (default: ~/.unotes/config.yaml)")
	pf.StringVarP(&a.flags.dbPath, "db", "d", "", "Session database path (default: $UNOTES_DB or ~/.unotes/session.db)")
	pf.StringVar(&a.flags.authURL, "auth-url", "", "Auth service URL")
	pf.StringVar(&a.flags.noteURL, "note-url", "", "Note service URL")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVarP(&a.flags.format, "format", "f", "json", "Output format: json or text")

	root.AddCommand(
		newSignUpCmd(a),
		newSignInCmd(a),
		newSignOutCmd(a),
		newStatusCmd(a),
		newListCmd(a),
		newGetCmd(a),
		newCreateCmd(a),
		newEditCmd(a),
		newRmCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	root, closeFn := NewRootCmd()
	defer closeFn()
	if err := root.Execute(); err != nil {
		printErr(os.Stderr, err)
		return 1
	}
	return 0
}

func printErr(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
	if hint := httpapi.Describe(err); hint != "" {
		fmt.Fprintf(w, "hint: %s\n", hint)
	} else if errors.Is(err, session.ErrSignedOut) {
		fmt.Fprintln(w, "hint: run `unotes signin`")
	} else if errors.Is(err, notes.ErrNoteNotFound) {
		fmt.Fprintln(w, "hint: not found")
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.flags.format != "json" && a.flags.format != "text" {
		return fail("flags", fmt.Errorf("invalid format %q (valid: json, text)", a.flags.format))
	}

	cfg, err := config.Load(a.flags.configPath, a.dotenvDir)
	if err != nil {
		return fail("load config", err)
	}
	if a.flags.dbPath != "" {
		cfg.DBPath = a.flags.dbPath
	}
	if a.flags.authURL != "" {
		cfg.AuthURL = a.flags.authURL
	}
	if a.flags.noteURL != "" {
		cfg.NoteURL = a.flags.noteURL
	}
	if a.flags.logLevel != "" {
		cfg.LogLevel = a.flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fail("config", err)
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, a.stderr)
	if err != nil {
		return fail("config", err)
	}
	a.logger = logger

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fail("open store", err)
	}
	a.db = db
	a.tokens = db
	if !cfg.PersistAccessToken {
		a.tokens = &store.SplitStore{Access: store.NewMemoryStore(), Refresh: db}
	}

	opts := []httpapi.Option{
		httpapi.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		httpapi.WithLogger(logger),
	}
	a.auth = authclient.New(cfg.AuthBaseURL(), opts...)
	a.notesAPI = noteclient.New(cfg.NoteBaseURL(), opts...)
	a.resolver = session.NewResolver(a.tokens, a.auth, a.notesAPI, session.WithLogger(logger))
	a.manager = notes.NewManager(a.notesAPI, a.resolver, notes.WithLogger(logger))
	a.resolver.OnChange(func(e session.Event) {
		logger.Debug("session changed", "event", e.Kind.String())
		a.manager.Reset()
	})
	a.manager.OnMutation(func(op notes.Mutation) {
		logger.Debug("mutation", "op", op.ID, "kind", string(op.Kind), "state", op.State.String())
	})
	return nil
}

func (a *app) close() {
	if a.tokens != nil {
		if err := a.tokens.Close(); err != nil {
			a.logger.Debug("close session store", "error", err)
		}
		a.tokens = nil
		a.db = nil
	}
}

// requireSession resolves the session and fails when signed out.
func (a *app) requireSession(ctx context.Context) error {
	res, err := a.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	if res.State != session.SignedIn {
		return session.ErrSignedOut
	}
	if res.Renewed {
		a.logger.InfoContext(ctx, "session renewed")
	}
	return nil
}

// loadNotes resolves the session and loads the collection.
func (a *app) loadNotes(ctx context.Context) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	return a.manager.Load(ctx)
}

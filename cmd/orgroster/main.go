// Command orgroster lists student organizations, their officers and members,
// and lets officers manage their own organization's roster from a terminal.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"

	"orgroster/internal/blob"
	"orgroster/internal/config"
	"orgroster/internal/core"
	"orgroster/internal/images"
	"orgroster/internal/logger"
	"orgroster/internal/session"
	"orgroster/pkg/domain"
)

var (
	exitFunc                    = os.Exit
	lookupEnv config.LookupFunc = os.LookupEnv
)

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"orgs":         {"orgs [-q term]", runOrgs},
	"branches":     {"branches [-q term]", runBranches},
	"show":         {"show <ref>", runShow},
	"officers":     {"officers <ref> [-semester label]", runOfficers},
	"members":      {"members <ref> [-q term]", runMembers},
	"applicants":   {"applicants <ref> [-q term]", runApplicants},
	"accept":       {"accept <ref> <row> [-q term]", runAccept},
	"decline":      {"decline <ref> <row> [-q term]", runDecline},
	"edit-member":  {"edit-member <ref> <row> <position> [-q term]", runEditMember},
	"kick":         {"kick <ref> <row> [-q term]", runKick},
	"edit-officer": {"edit-officer <ref> -name <name> [-position p] [-start-date d] [-photo key] [-card key]", runEditOfficer},
	"edit-org":     {"edit-org <ref> [-brief b] [-description d] [-logo key]", runEditOrg},
	"import-logo":  {"import-logo <ref> <file> [-officer name]", runImportLogo},
	"migrate":      {"migrate -to <driver> [-to-data path] [-to-sqlite path] [-to-dsn dsn]", runMigrate},
}

// main runs the command-line interface and exits with the status code
// returned by cli.
func main() {
	exitFunc(cli(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type globalFlags struct {
	configPath string
	driver     string
	dataPath   string
	identity   string
	roles      string
	logLevel   string
	logFormat  string
	strict     bool
	yes        bool
	metrics    bool
	metricsFmt string
}

func cli(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("orgroster", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var g globalFlags
	fs.StringVar(&g.configPath, "config", "", "path to YAML config file")
	fs.StringVar(&g.driver, "driver", "", "storage driver: memory|json|sqlite|postgres")
	fs.StringVar(&g.dataPath, "data", "", "path to the JSON roster document")
	fs.StringVar(&g.identity, "identity", "", "name of the acting officer")
	fs.StringVar(&g.roles, "roles", "", "comma separated roles of the acting identity")
	fs.StringVar(&g.logLevel, "log-level", "", "debug|info|warn|error")
	fs.StringVar(&g.logFormat, "log-format", "", "console|json")
	fs.BoolVar(&g.strict, "strict", false, "validate the document before saving")
	fs.BoolVar(&g.yes, "yes", false, "confirm destructive actions without prompting")
	fs.BoolVar(&g.metrics, "metrics", false, "print service metrics to stderr on exit")
	fs.StringVar(&g.metricsFmt, "metrics-format", metricsText, "metrics output: text (Prometheus exposition) or json")
	fs.Usage = func() { printUsage(fs, stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n", rest[0])
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(g.configPath, lookupEnv)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	applyFlags(fs, g, &cfg)
	log, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: logger.Format(cfg.Log.Format), Out: stderr})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "logger: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{cfg: cfg, log: log, stdin: bufio.NewReader(stdin), stdout: stdout, stderr: stderr, yes: g.yes}
	if g.metrics {
		switch g.metricsFmt {
		case metricsText:
			a.registry = prometheus.NewRegistry()
		case metricsJSON:
			a.snapshot = core.NewExpvarMetricsRecorder("")
		default:
			_, _ = fmt.Fprintf(stderr, "unknown metrics format %q\n", g.metricsFmt)
			return 2
		}
	}
	runErr := a.execute(ctx, cmd, rest[1:])
	if g.metrics {
		if err := a.writeMetrics(stderr); err != nil {
			log.Error().Err(err).Msg("write metrics")
		}
	}
	switch {
	case runErr == nil:
		return 0
	case errors.Is(runErr, session.ErrCancelled):
		_, _ = fmt.Fprintln(stdout, "Cancelled.")
		return 0
	case errors.Is(runErr, errUsage):
		_, _ = fmt.Fprintf(stderr, "%v\nusage: orgroster [flags] %s\n", runErr, cmd.usage)
		return 2
	default:
		_, _ = fmt.Fprintf(stderr, "error: %v\n", runErr)
		return 1
	}
}

// applyFlags lets explicitly set global flags override file and environment settings.
func applyFlags(fs *flag.FlagSet, g globalFlags, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "driver":
			cfg.Storage.Driver = g.driver
		case "data":
			cfg.Storage.DataPath = g.dataPath
		case "strict":
			cfg.Storage.Strict = g.strict
		case "identity":
			cfg.Identity.Name = g.identity
		case "roles":
			cfg.Identity.Roles = splitRoles(g.roles)
		case "log-level":
			cfg.Log.Level = g.logLevel
		case "log-format":
			cfg.Log.Format = g.logFormat
		}
	})
}

func splitRoles(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: orgroster [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
	_, _ = fmt.Fprintln(w, "\nflags:")
	fs.PrintDefaults()
}

const (
	metricsText = "text"
	metricsJSON = "json"
)

// writeMetrics prints what the invocation's recorder collected.
func (a *app) writeMetrics(w io.Writer) error {
	if a.snapshot != nil {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(a.snapshot.Snapshot()); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
		return nil
	}
	if a.registry == nil {
		return nil
	}
	families, err := a.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return nil
}

var errUsage = errors.New("invalid arguments")

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), errUsage)
}

// app holds what a single command invocation needs.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	stdin    *bufio.Reader
	stdout   io.Writer
	stderr   io.Writer
	yes      bool
	registry *prometheus.Registry
	snapshot *core.ExpvarMetricsRecorder

	store    domain.DocumentStore
	svc      *core.Service
	loadErr  error
	images   *images.Resolver
	recorder core.MetricsRecorder
}

func (a *app) execute(ctx context.Context, cmd command, args []string) error {
	defer a.close()
	return cmd.run(ctx, a, args)
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("close store")
	}
}

// metricsRecorder returns the recorder shared by every service of this
// invocation, or nil when -metrics is off.
func (a *app) metricsRecorder() (core.MetricsRecorder, error) {
	switch {
	case a.recorder != nil:
		return a.recorder, nil
	case a.snapshot != nil:
		a.recorder = a.snapshot
	case a.registry != nil:
		prom, err := core.NewPrometheusMetricsRecorder(a.registry)
		if err != nil {
			return nil, err
		}
		a.recorder = prom
	}
	return a.recorder, nil
}

// service opens the configured store and loads the document. A failed load
// is logged and the service continues with an empty document, so listings
// show the empty state instead of aborting.
func (a *app) service(ctx context.Context) (*core.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	store, err := core.OpenDocumentStore(ctx, a.cfg.Storage, logger.Component(a.log, "store"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = store
	rec, err := a.metricsRecorder()
	if err != nil {
		return nil, err
	}
	a.svc = core.NewService(store,
		core.WithLogger(logger.Component(a.log, "service")),
		core.WithMetrics(rec))
	a.loadErr = a.svc.Load(ctx)
	return a.svc, nil
}

func (a *app) session(ctx context.Context) (*session.Session, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}
	id := session.Identity{Name: a.cfg.Identity.Name, Roles: a.cfg.Identity.Roles}
	return session.New(svc, id,
		session.WithConfirmer(session.ConfirmFunc(a.confirm)),
		session.WithLogger(logger.Component(a.log, "session"))), nil
}

func (a *app) resolver(ctx context.Context) (*images.Resolver, error) {
	if a.images != nil {
		return a.images, nil
	}
	store, err := blob.Open(ctx, a.cfg.Blob.BlobConfig())
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	a.images = images.New(store)
	return a.images, nil
}

// confirm approves automatically with -yes, otherwise it asks on stdout and
// accepts "y" or "yes" from stdin.
func (a *app) confirm(_ context.Context, prompt string) (bool, error) {
	if a.yes {
		return true, nil
	}
	if _, err := fmt.Fprintf(a.stdout, "%s [y/N] ", prompt); err != nil {
		return false, err
	}
	line, err := a.stdin.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

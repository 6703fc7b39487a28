package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pictune/internal/auth"
	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/repositories"
	"github.com/desertthunder/pictune/internal/services"
	"github.com/desertthunder/pictune/internal/shared"
	"github.com/desertthunder/pictune/internal/tasks"
	"github.com/desertthunder/pictune/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database, model clients and catalog are opened on first use so that commands only pay for what they touch.
type Runner struct {
	config      *shared.Config
	configPath  string
	logger      *log.Logger
	output      io.Writer
	db          *sql.DB
	ownsDB      bool
	runs        *repositories.RunRepository
	exports     *repositories.ExportRepository
	cache       *repositories.MatchCache
	source      services.Source
	describer   services.Describer
	converter   services.Converter
	endpoints   services.Endpoints
	openBrowser func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	Logger      *log.Logger
	Output      io.Writer
	DB          *sql.DB
	Source      services.Source
	Describer   services.Describer
	Converter   services.Converter
	Endpoints   services.Endpoints
	OpenBrowser func(string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	r := &Runner{
		config:      opts.Config,
		logger:      opts.Logger,
		output:      opts.Output,
		source:      opts.Source,
		describer:   opts.Describer,
		converter:   opts.Converter,
		endpoints:   opts.Endpoints,
		openBrowser: opts.OpenBrowser,
	}
	if opts.DB != nil {
		r.useDB(opts.DB)
	}
	return r
}

// SetLogger replaces the logger used by the runner and everything it creates afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Before loads the configuration named by --config and applies --debug.
//
// A missing config file is not an error: the embedded defaults and the environment are used.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := shared.LoadDotEnv(); err != nil {
		r.logger.Warn("failed to load .env", "error", err)
	}

	r.configPath = cmd.String("config")
	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else {
		r.config.ApplyEnv()
	}

	level := r.config.LogLevel
	if cmd.Bool("debug") {
		level = "debug"
	}
	if level != "" {
		ll, err := log.ParseLevel(level)
		if err != nil {
			return ctx, fmt.Errorf("%w: log_level %q: %v", shared.ErrConfiguration, level, err)
		}
		shared.SetLogLevel(r.logger, ll)
	}
	return ctx, nil
}

// After closes the database when a command opened it.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

// Close releases the database handle when the runner opened it.
func (r *Runner) Close() error {
	if r.db == nil || !r.ownsDB {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, analyzeCommand, runsCommand, spotifyCommand, cardCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) useDB(db *sql.DB) {
	r.db = db
	r.runs = repositories.NewRunRepository(db)
	r.exports = repositories.NewExportRepository(db)
	r.cache = repositories.NewMatchCache(db)
}

// database opens and migrates the configured database on first use.
func (r *Runner) database() error {
	if r.db != nil {
		return nil
	}
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	r.useDB(db)
	r.ownsDB = true
	return nil
}

// catalog returns the Deezer catalog used for generation.
func (r *Runner) catalog() services.Source {
	if r.source == nil {
		r.source = services.NewDeezerService(r.config.Deezer.BaseURL, shared.WithLogger(r.logger, "service", "deezer"))
	}
	return r.source
}

func (r *Runner) llmSettings(provider, model string) services.LLMSettings {
	s := services.LLMSettings{Provider: provider, Model: model, APIKey: r.config.LLM.OpenAIAPIKey}
	if provider == services.ProviderOllama {
		s.BaseURL = r.config.LLM.OllamaBaseURL
	} else {
		s.BaseURL = r.config.LLM.OpenAIBaseURL
	}
	return s
}

// modelClients builds the vision and params clients on first use.
func (r *Runner) modelClients() (services.Describer, services.Converter, error) {
	llm := r.config.LLM
	if r.describer == nil {
		v, err := services.NewVisionService(r.llmSettings(llm.VisionProvider, llm.VisionModel), shared.WithLogger(r.logger, "service", "vision"))
		if err != nil {
			return nil, nil, err
		}
		r.describer = v
	}
	if r.converter == nil {
		p, err := services.NewParamsService(r.llmSettings(llm.ParamsProvider, llm.ParamsModel), shared.WithLogger(r.logger, "service", "params"))
		if err != nil {
			return nil, nil, err
		}
		r.converter = p
	}
	return r.describer, r.converter, nil
}

// engine builds a task engine from the config. The match cache is attached when the database is open.
func (r *Runner) engine() *tasks.Engine {
	opts := []tasks.EngineOption{
		tasks.WithSource(r.catalog()),
		tasks.WithRateLimit(r.config.Matcher.RequestsPerSecond),
		tasks.WithBatchSize(r.config.Matcher.BatchSize),
		tasks.WithGeneratorLimits(r.config.Deezer.Playlists, r.config.Deezer.MinScore),
		tasks.WithEngineLogger(shared.WithLogger(r.logger, "component", "engine")),
	}
	if r.cache != nil {
		opts = append(opts, tasks.WithCache(r.cache))
	}
	return tasks.NewEngine(opts...)
}

// spotifyService loads the credentials and builds the OAuth client for scopes.
func (r *Runner) spotifyService(scopes ...string) (*services.SpotifyService, models.Credentials, error) {
	values, err := shared.LoadCredentials(r.config.Spotify.CredentialsFile)
	if err != nil {
		return nil, models.Credentials{}, err
	}
	creds, err := models.NewCredentials(values, r.config.Spotify.RedirectURI)
	if err != nil {
		return nil, creds, fmt.Errorf("%w (set them in %s or SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET)", err, r.config.Spotify.CredentialsFile)
	}

	if len(scopes) == 0 {
		scopes = r.config.Spotify.Scopes
	}
	svc, err := services.NewSpotifyService(creds,
		services.WithScopes(scopes...),
		services.WithEndpoints(r.endpoints),
		services.WithLogger(shared.WithLogger(r.logger, "service", "spotify")),
	)
	return svc, creds, err
}

// connect runs the authorization-code flow: it starts the redirect listener, sends the user to the
// consent page and waits for the redirect. Progress is written to w.
func (r *Runner) connect(ctx context.Context, w io.Writer, scopes ...string) (*auth.Session, *services.SpotifyService, error) {
	svc, creds, err := r.spotifyService(scopes...)
	if err != nil {
		return nil, nil, err
	}

	authorizer, err := auth.NewAuthorizer(svc, creds,
		auth.WithRefreshMargin(r.config.Auth.RefreshMargin()),
		auth.WithLogger(shared.WithLogger(r.logger, "component", "auth")),
	)
	if err != nil {
		return nil, nil, err
	}
	defer authorizer.Cancel()

	req, err := authorizer.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}

	r.logger.Info("authorization started", "url", req.URL)
	fmt.Fprintf(w, "→ Opening browser for Spotify authorization (scopes: %s)...\n", strings.Join(req.Scopes, " "))
	if err := r.openBrowser(req.URL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		fmt.Fprintf(w, "⚠ Could not open browser automatically.\nPlease open this URL in your browser:\n%s\n\n", req.URL)
	}

	timeout := r.config.Auth.Timeout()
	fmt.Fprintf(w, "→ Waiting for authorization (%s timeout)...\n", timeout)

	session, err := authorizer.Await(ctx, timeout)
	if err != nil {
		return nil, nil, err
	}
	return session, svc, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// progress prints engine events as they arrive. The returned stop closes the channel and waits
// for the printer to drain it.
func (r *Runner) progress() (chan tasks.Event, func()) {
	events := make(chan tasks.Event, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			r.printEvent(ev)
		}
	}()
	return events, func() {
		close(events)
		<-done
	}
}

func (r *Runner) printEvent(ev tasks.Event) {
	if ev.Kind == tasks.EventStarted {
		icon := "🔍"
		switch ev.Phase {
		case tasks.PhaseAssemble:
			icon = "📝"
		case tasks.PhaseGenerate:
			icon = "📥"
		}
		r.writePlain("\n%s %s\n", icon, ui.EventLine(ev))
		return
	}
	if line := ui.EventLine(ev); line != "" {
		r.writePlain("   %s\n", line)
	}
}

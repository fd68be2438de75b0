// Package app wires all dictation subsystems into a running server.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP and the periodic phrase reload until the
// context is cancelled, and Shutdown tears everything down in reverse
// order of construction.
//
// For testing, inject doubles via functional options (WithStore,
// WithTranscriber, WithExecutor, WithMeterProvider). When an option is not
// provided, New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/openlaudos/dictate/internal/config"
	"github.com/openlaudos/dictate/internal/dictation"
	"github.com/openlaudos/dictate/internal/editor"
	"github.com/openlaudos/dictate/internal/editor/wsbridge"
	"github.com/openlaudos/dictate/internal/health"
	"github.com/openlaudos/dictate/internal/match"
	"github.com/openlaudos/dictate/internal/observe"
	"github.com/openlaudos/dictate/internal/registry"
	"github.com/openlaudos/dictate/internal/registry/phrasestore"
	"github.com/openlaudos/dictate/internal/remote"
	"github.com/openlaudos/dictate/pkg/provider/embeddings"
	openaiembed "github.com/openlaudos/dictate/pkg/provider/embeddings/openai"
	"github.com/openlaudos/dictate/pkg/provider/stt"
	openaistt "github.com/openlaudos/dictate/pkg/provider/stt/openai"
	"github.com/openlaudos/dictate/pkg/provider/stt/whisper"
)

// App owns all subsystem lifetimes for one dictation server instance.
type App struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *observe.Metrics

	store    phrasestore.Store
	searcher phrasestore.SemanticSearcher
	registry *registry.Registry

	exec   editor.Executor
	bridge *wsbridge.Bridge

	session     *dictation.Session
	transcriber stt.Transcriber
	hub         *remote.Hub
	health      *health.Handler

	meterProvider metric.MeterProvider

	// closers are called in reverse order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a phrase store instead of creating one from config.
func WithStore(s phrasestore.Store) Option {
	return func(a *App) { a.store = s }
}

// WithTranscriber injects a transcription backend instead of creating one
// from config.
func WithTranscriber(t stt.Transcriber) Option {
	return func(a *App) { a.transcriber = t }
}

// WithExecutor injects an editor executor instead of creating the WebSocket
// bridge. The /editor/ws endpoint is not served when an executor is
// injected.
func WithExecutor(e editor.Executor) Option {
	return func(a *App) { a.exec = e }
}

// WithMeterProvider overrides the meter provider backing the metric
// instruments. Defaults to the global OTel provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(a *App) { a.meterProvider = mp }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(a *App) { a.log = log }
}

// New creates an App by wiring all subsystems together: phrase store,
// command registry (with its initial load), editor bridge, dispatcher,
// session, transcription backend, and remote pairing hub.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg, log: slog.Default()}
	for _, o := range opts {
		o(a)
	}

	if a.meterProvider == nil {
		a.meterProvider = otel.GetMeterProvider()
	}
	m, err := observe.NewMetrics(a.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("app: init metrics: %w", err)
	}
	a.metrics = m

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init phrase store: %w", err)
	}

	a.registry = registry.New()
	if err := a.ReloadRegistry(ctx); err != nil {
		return nil, fmt.Errorf("app: initial phrase load: %w", err)
	}

	if err := a.initTranscriber(); err != nil {
		return nil, fmt.Errorf("app: init transcriber: %w", err)
	}

	a.initSession()

	if cfg.RemoteEnabled() {
		a.hub = remote.NewHub(a.session, a.transcriber, a.metrics,
			remote.WithTokenTTL(cfg.Remote.TokenTTL),
			remote.WithHubLogger(a.log),
		)
	}

	a.health = health.New(health.Check{
		Name: "phrases",
		Probe: func(ctx context.Context) error {
			_, err := a.store.ListEntries(ctx)
			return err
		},
	})

	return a, nil
}

// initStore sets up the phrase library backend, and the embeddings provider
// behind semantic search when configured.
func (a *App) initStore(ctx context.Context) error {
	if a.store == nil {
		switch a.cfg.Phrases.Source {
		case config.PhraseSourceYAML:
			store, err := phrasestore.NewYAMLStore(a.cfg.Phrases.Path)
			if err != nil {
				return err
			}
			a.store = store

		case config.PhraseSourcePostgres:
			embedder, err := a.buildEmbedder()
			if err != nil {
				return err
			}
			store, err := phrasestore.NewPostgresStore(ctx, a.cfg.Phrases.PostgresDSN, embedder)
			if err != nil {
				return err
			}
			a.store = store

		default:
			return fmt.Errorf("unknown phrase source %q", a.cfg.Phrases.Source)
		}
	}
	a.closers = append(a.closers, a.store.Close)

	if s, ok := a.store.(phrasestore.SemanticSearcher); ok {
		a.searcher = s
	}
	return nil
}

// buildEmbedder constructs the embeddings provider, or nil when the feature
// is not configured.
func (a *App) buildEmbedder() (embeddings.Provider, error) {
	ec := a.cfg.Embeddings
	if ec.Name == "" {
		return nil, nil
	}

	var opts []openaiembed.Option
	if ec.BaseURL != "" {
		opts = append(opts, openaiembed.WithBaseURL(ec.BaseURL))
	}
	if ec.Dimensions > 0 {
		opts = append(opts, openaiembed.WithDimensions(ec.Dimensions))
	}
	p, err := openaiembed.New(ec.APIKey, ec.Model, opts...)
	if err != nil {
		return nil, err
	}
	a.log.Info("embeddings provider created", "name", ec.Name, "model", p.ModelID())
	return p, nil
}

// initTranscriber constructs the transcription backend named in the config.
// An empty name leaves transcription to the devices.
func (a *App) initTranscriber() error {
	if a.transcriber != nil {
		a.closers = append(a.closers, a.transcriber.Close)
		return nil
	}

	tc := a.cfg.Transcriber
	lang := a.cfg.Dictation.Language

	var err error
	switch tc.Name {
	case "":
		return nil

	case "openai":
		var opts []openaistt.Option
		if tc.BaseURL != "" {
			opts = append(opts, openaistt.WithBaseURL(tc.BaseURL))
		}
		opts = append(opts, openaistt.WithLanguage(lang))
		a.transcriber, err = openaistt.New(tc.APIKey, tc.Model, opts...)

	case "whisper":
		opts := []whisper.Option{whisper.WithLanguage(lang)}
		if tc.Model != "" {
			opts = append(opts, whisper.WithModel(tc.Model))
		}
		a.transcriber, err = whisper.New(tc.ServerURL, opts...)

	case "whisper-native":
		a.transcriber, err = whisper.NewNative(tc.ModelPath, whisper.WithNativeLanguage(lang))

	default:
		return fmt.Errorf("unknown transcriber %q", tc.Name)
	}
	if err != nil {
		return err
	}

	a.closers = append(a.closers, a.transcriber.Close)
	a.log.Info("transcriber created", "name", a.transcriber.Name())
	return nil
}

// initSession builds the editor bridge (unless an executor was injected),
// the dispatcher, and the session state machine.
func (a *App) initSession() {
	var prompt dictation.PromptFunc
	if a.exec == nil {
		a.bridge = wsbridge.New(wsbridge.WithLogger(a.log))
		a.exec = a.bridge
		prompt = func(p dictation.VariableFillPrompt) {
			a.bridge.PromptVariable(p.Spec.Name, p.Retry)
		}
	}

	dispOpts := []dictation.DispatcherOption{dictation.WithDispatcherLogger(a.log)}
	if prompt != nil {
		dispOpts = append(dispOpts, dictation.WithPromptFunc(prompt))
	}
	disp := dictation.NewDispatcher(a.registry, a.exec, a.metrics, dispOpts...)

	// The expire callback reads a.session after NewSession below assigns
	// it; the arbiter cannot expire before a Start, which happens later.
	arb := dictation.NewArbiter(
		dictation.WithIdleTimeout(a.cfg.Dictation.IdleTimeout),
		dictation.WithExpireFunc(func(sourceID string) {
			a.log.Warn("dictation source idle, stopping session", "source", sourceID)
			a.session.Stop(context.Background())
		}),
	)

	matcher := match.New(
		match.WithMinScore(a.cfg.Matching.MinScore),
		match.WithFuzzyThreshold(a.cfg.Matching.FuzzyThreshold),
	)

	a.session = dictation.NewSession(arb, a.registry, disp, a.metrics,
		dictation.WithMatcher(matcher),
		dictation.WithMinConfidence(a.cfg.Dictation.MinConfidence),
		dictation.WithSessionLogger(a.log),
	)
}

// ReloadRegistry rebuilds the command registry from the phrase store and
// publishes a new snapshot. Matching passes already in flight keep reading
// the previous snapshot.
func (a *App) ReloadRegistry(ctx context.Context) error {
	ctx, span := observe.StartSpan(ctx, "registry_reload")
	defer span.End()

	entries, err := a.store.ListEntries(ctx)
	if err != nil {
		return fmt.Errorf("list phrase entries: %w", err)
	}
	snap, err := a.registry.Load(entries)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}
	a.metrics.RegistryReloads.Add(ctx, 1)
	a.log.Info("phrase registry loaded", "version", snap.Version(), "entries", snap.Len())
	return nil
}

// Session exposes the dictation session, primarily for tests.
func (a *App) Session() *dictation.Session {
	return a.session
}

// Run serves HTTP and runs the periodic phrase reload until ctx is
// cancelled, then shuts the listener down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if interval := a.cfg.Phrases.ReloadInterval; interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := a.ReloadRegistry(ctx); err != nil {
						a.log.Warn("phrase reload failed, keeping previous snapshot", "err", err)
					}
				}
			}
		})
	}

	return g.Wait()
}

// Shutdown stops the active session and closes all subsystems in reverse
// order of construction. Safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		a.session.Stop(ctx)

		var errs []error
		for i := len(a.closers) - 1; i >= 0; i-- {
			if e := a.closers[i](); e != nil {
				errs = append(errs, e)
			}
		}
		err = errors.Join(errs...)
	})
	return err
}

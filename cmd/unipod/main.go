// Command unipod is the main entry point for the UniPod podcast generation server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"go.opentelemetry.io/otel"

	"github.com/unipodhq/unipod/internal/audio"
	"github.com/unipodhq/unipod/internal/config"
	"github.com/unipodhq/unipod/internal/health"
	"github.com/unipodhq/unipod/internal/observe"
	"github.com/unipodhq/unipod/internal/pipeline"
	"github.com/unipodhq/unipod/internal/publish"
	"github.com/unipodhq/unipod/internal/resilience"
	"github.com/unipodhq/unipod/internal/script"
	"github.com/unipodhq/unipod/internal/server"
	"github.com/unipodhq/unipod/internal/store"
	"github.com/unipodhq/unipod/internal/voice"
	"github.com/unipodhq/unipod/pkg/provider/llm"
	"github.com/unipodhq/unipod/pkg/provider/llm/anyllm"
	"github.com/unipodhq/unipod/pkg/provider/llm/ollama"
	openaillm "github.com/unipodhq/unipod/pkg/provider/llm/openai"
	"github.com/unipodhq/unipod/pkg/provider/ocr"
	"github.com/unipodhq/unipod/pkg/provider/ocr/pdftext"
	"github.com/unipodhq/unipod/pkg/provider/ocr/tesseract"
	"github.com/unipodhq/unipod/pkg/provider/tts"
	"github.com/unipodhq/unipod/pkg/provider/tts/xtts"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "unipod: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "unipod: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := &slog.LevelVar{}
	level.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("unipod starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "unipod"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Persistence ───────────────────────────────────────────────────────────
	var (
		users    store.UserStore
		podcasts store.PodcastStore
		pinger   health.Pinger
	)
	if dsn := cfg.Database.PostgresDSN; dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			slog.Error("failed to connect to postgres", "err", err)
			return 1
		}
		defer pool.Close()

		pg := store.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database schema", "err", err)
			return 1
		}
		users, podcasts, pinger = pg, pg, pg
		slog.Info("postgres store ready")
	} else {
		mem := store.NewMemoryStore()
		users, podcasts, pinger = mem, mem, mem
		slog.Warn("no database configured; records are kept in memory and lost on restart")
	}

	// ── Artifact store ────────────────────────────────────────────────────────
	publisher, err := publish.NewS3Publisher(ctx, publish.S3Config{
		Bucket:         cfg.Storage.S3.Bucket,
		Region:         cfg.Storage.S3.Region,
		Endpoint:       cfg.Storage.S3.Endpoint,
		ForcePathStyle: cfg.Storage.S3.ForcePathStyle,
	})
	if err != nil {
		slog.Error("failed to create s3 publisher", "err", err)
		return 1
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	resolver, err := voice.NewResolver(cfg.Voices.Presets)
	if err != nil {
		slog.Error("failed to create voice resolver", "err", err)
		return 1
	}
	generator, err := script.NewGenerator(providers.llm, cfg.Hosts.Host1, cfg.Hosts.Host2)
	if err != nil {
		slog.Error("failed to create script generator", "err", err)
		return 1
	}
	parser, err := script.NewParser(cfg.Hosts.Host1, cfg.Hosts.Host2)
	if err != nil {
		slog.Error("failed to create dialogue parser", "err", err)
		return 1
	}

	pipe, err := pipeline.New(pipeline.Config{
		ScriptTimeout:    cfg.Pipeline.ScriptTimeout.Std(),
		PublishTimeout:   cfg.Pipeline.PublishTimeout.Std(),
		RetryAttempts:    cfg.Pipeline.RetryAttempts,
		SynthesisWorkers: cfg.Pipeline.SynthesisWorkers,
		TempDir:          cfg.Pipeline.TempDir,
	}, pipeline.Deps{
		OCR:       providers.ocr,
		Generator: generator,
		Parser:    parser,
		Voices:    resolver,
		TTS:       providers.tts,
		Encoder:   audio.NewFFmpegEncoder(),
		Publisher: publisher,
		Metrics:   metrics,
	})
	if err != nil {
		slog.Error("failed to assemble pipeline", "err", err)
		return 1
	}

	// ── Health checks ─────────────────────────────────────────────────────────
	checkers := []health.Checker{
		health.Database(pinger),
		health.Storage(publisher),
	}
	if url := cfg.Providers.LLM.BaseURL; url != "" {
		checkers = append(checkers, health.Endpoint("llm", url, nil))
	}
	if url := cfg.Providers.TTS.BaseURL; url != "" {
		checkers = append(checkers, health.Endpoint("tts", url, nil))
	}
	if url := cfg.Providers.OCR.BaseURL; url != "" {
		checkers = append(checkers, health.Endpoint("ocr", url, nil))
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	serverCfg := server.Config{
		ListenAddr: cfg.Server.ListenAddr,
		JWTSecret:  cfg.Auth.JWTSecret,
		TokenTTL:   cfg.Auth.TokenTTL.Std(),
		Hosts:      [2]string{cfg.Hosts.Host1, cfg.Hosts.Host2},
	}
	if serverCfg.ListenAddr == "" {
		serverCfg.ListenAddr = ":8080"
	}
	if cfg.Server.TLS != nil {
		serverCfg.CertFile = cfg.Server.TLS.CertFile
		serverCfg.KeyFile = cfg.Server.TLS.KeyFile
	}

	srv, err := server.New(serverCfg, server.Deps{
		Users:    users,
		Podcasts: podcasts,
		Runner:   pipe,
		Health:   health.New(checkers...),
		Metrics:  metrics,
	})
	if err != nil {
		slog.Error("failed to create http server", "err", err)
		return 1
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			level.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.RestartNeeded() {
			slog.Warn("configuration changes require a restart to take effect")
		}
	})
	if err != nil {
		slog.Error("failed to start config watcher", "err", err)
		return 1
	}
	defer watcher.Stop()

	printStartupSummary(cfg)

	if err := srv.Start(); err != nil {
		slog.Error("failed to start http server", "err", err)
		return 1
	}

	slog.Info("server ready; press Ctrl+C to shut down")
	<-ctx.Done()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	// openai uses the native client; the any-llm names share one pattern:
	// optional APIKey + optional BaseURL.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, openaillm.WithBaseURL(entry.BaseURL))
		}
		return openaillm.New(entry.APIKey, entry.Model, opts...)
	})

	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama uses the native /api/chat client. BaseURL is the server address.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []ollama.Option
		if entry.BaseURL != "" {
			opts = append(opts, ollama.WithBaseURL(entry.BaseURL))
		}
		return ollama.New(entry.Model, opts...)
	})

	// ── OCR ───────────────────────────────────────────────────────────────────

	reg.RegisterOCR("tesseract", func(entry config.ProviderEntry) (ocr.Provider, error) {
		var opts []tesseract.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, tesseract.WithLanguage(lang))
		}
		return tesseract.New(entry.BaseURL, opts...)
	})

	reg.RegisterOCR("pdftext", func(config.ProviderEntry) (ocr.Provider, error) {
		return pdftext.New(), nil
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("xtts", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []xtts.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, xtts.WithLanguage(lang))
		}
		return xtts.New(entry.BaseURL, opts...)
	})
}

// providerSet holds the instantiated providers the pipeline runs on.
type providerSet struct {
	llm llm.Provider
	ocr ocr.Provider
	tts tts.Provider
}

// buildProviders instantiates the configured providers. LLM and TTS are
// required; OCR falls back to embedded-text extraction when unset.
func buildProviders(cfg *config.Config, reg *config.Registry) (*providerSet, error) {
	ps := &providerSet{}

	p, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	ps.llm = p
	slog.Info("provider created", "kind", "llm", "name", cfg.Providers.LLM.Name)

	if fbs := cfg.Providers.LLM.Fallbacks; len(fbs) > 0 {
		group := resilience.NewLLMFallback(p, cfg.Providers.LLM.Name, resilience.FallbackConfig{})
		for _, entry := range fbs {
			fb, err := reg.CreateLLM(entry)
			if err != nil {
				return nil, fmt.Errorf("create llm fallback %q: %w", entry.Name, err)
			}
			group.AddFallback(entry.Name, fb)
			slog.Info("provider created", "kind", "llm", "name", entry.Name, "role", "fallback")
		}
		ps.llm = group
	}

	if name := cfg.Providers.OCR.Name; name != "" {
		o, err := reg.CreateOCR(cfg.Providers.OCR)
		if err != nil {
			return nil, fmt.Errorf("create ocr provider %q: %w", name, err)
		}
		ps.ocr = o
		slog.Info("provider created", "kind", "ocr", "name", name)
	} else {
		ps.ocr = pdftext.New()
		slog.Info("provider created", "kind", "ocr", "name", "pdftext (default)")
	}

	t, err := reg.CreateTTS(cfg.Providers.TTS)
	if err != nil {
		return nil, fmt.Errorf("create tts provider %q: %w", cfg.Providers.TTS.Name, err)
	}
	ps.tts = t
	slog.Info("provider created", "kind", "tts", "name", cfg.Providers.TTS.Name)

	if fbs := cfg.Providers.TTS.Fallbacks; len(fbs) > 0 {
		group := resilience.NewTTSFallback(t, cfg.Providers.TTS.Name, resilience.FallbackConfig{})
		for _, entry := range fbs {
			fb, err := reg.CreateTTS(entry)
			if err != nil {
				return nil, fmt.Errorf("create tts fallback %q: %w", entry.Name, err)
			}
			group.AddFallback(entry.Name, fb)
			slog.Info("provider created", "kind", "tts", "name", entry.Name, "role", "fallback")
		}
		ps.tts = group
	}

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          UniPod startup summary       ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("OCR", cfg.Providers.OCR.Name, "")
	printProvider("TTS", cfg.Providers.TTS.Name, "")
	fmt.Printf("║  Hosts           : %-19s ║\n", cfg.Hosts.Host1+" & "+cfg.Hosts.Host2)
	fmt.Printf("║  Voice presets   : %-19d ║\n", len(cfg.Voices.Presets))
	if cfg.Database.PostgresDSN != "" {
		fmt.Printf("║  Database        : %-19s ║\n", "postgres")
	} else {
		fmt.Printf("║  Database        : %-19s ║\n", "(in-memory)")
	}
	fmt.Printf("║  Bucket          : %-19s ║\n", cfg.Storage.S3.Bucket)
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

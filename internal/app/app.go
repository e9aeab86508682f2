package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"DocumentClassifier/internal/classify"
	"DocumentClassifier/internal/config"
	"DocumentClassifier/internal/domain"
	"DocumentClassifier/internal/extractor"
	"DocumentClassifier/internal/infrastructure/blob"
	"DocumentClassifier/internal/infrastructure/fetch"
	"DocumentClassifier/internal/infrastructure/google"
	"DocumentClassifier/internal/infrastructure/llm"
	"DocumentClassifier/internal/infrastructure/scheduler"
	"DocumentClassifier/internal/infrastructure/storage"
	"DocumentClassifier/internal/infrastructure/telegram"
	"DocumentClassifier/internal/logging"
	"DocumentClassifier/internal/normalize"
	"DocumentClassifier/internal/ports"
	"DocumentClassifier/internal/targeting"
	"DocumentClassifier/internal/transport/httpapi"
	"DocumentClassifier/internal/usecase"
	"DocumentClassifier/internal/visibility"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *storage.Store
	blobs    ports.BlobStore
	pipeline *usecase.Pipeline
	sweeper  *usecase.Sweeper
}

// New builds a runnable application instance. The generative model is optional:
// without it every classification ends as failed.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	blobs, err := newBlobStore(cfg.Blob)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	timeouts := cfg.Pipeline.Timeouts
	fetcher := fetch.NewHTTPFetcher(timeouts.Download, cfg.HTTP.MaxUploadBytes, fetchOptions(cfg, blobs)...)
	vision := google.NewVision(cfg.Vision.Endpoint, cfg.Vision.APIKey, timeouts.OCR)
	translator := google.NewTranslator(cfg.Translate.Endpoint, cfg.Translate.APIKey, timeouts.Translate)

	var generator ports.Generator
	model, err := llm.NewModel(cfg.LLM)
	if err != nil {
		baseLogger.Warn("generative model unavailable", "provider", cfg.LLM.Provider, "error", err)
	} else {
		jsonMode := !strings.EqualFold(cfg.LLM.Provider, llm.ProviderAnthropic)
		generator = llm.NewGenerator(model, fetcher, jsonMode)
	}

	notifier := telegram.NewMirror(store, telegram.NewNotifier(cfg.Notifications.Telegram),
		baseLogger.With("component", "notifier.telegram"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Store:      store,
		Directory:  store,
		Extractors: extractor.NewRegistry(extractor.NewWordExtractor(fetcher), extractor.NewImageExtractor(fetcher, vision)),
		Expander:   extractor.NewArchiveExpander(fetcher, blobs, cfg.Pipeline.MaxEntryBytes),
		Normalizer: normalize.NewNormalizer(translator, timeouts.Translate, baseLogger.With("component", "normalize")),
		Classifier: classify.New(generator, classify.Options{
			Timeout:        timeouts.Classify,
			SummaryTimeout: timeouts.Summary,
			Logger:         baseLogger.With("component", "classify"),
		}),
		Targeting:  targeting.New(targeting.DefaultRules()),
		Visibility: visibility.Policy{Escalation: cfg.Pipeline.RoleEscalation},
		Notifier:   notifier,
		Options: usecase.Options{
			Departments:        Departments(cfg.Pipeline.Departments),
			ArchiveConcurrency: cfg.Pipeline.ArchiveConcurrency,
			FallbackBroadcast:  cfg.Notifications.FallbackBroadcast,
			NotifyTimeout:      timeouts.Notify,
			LinkPrefix:         cfg.Notifications.LinkPrefix,
		},
		Logger: baseLogger.With("component", "pipeline"),
	})

	sweeper := usecase.NewSweeper(
		scheduler.NewCronScheduler(cfg.Sweeper.CronExpression, cfg.Sweeper.Location()),
		store,
		cfg.Sweeper.StaleAfter,
		baseLogger.With("component", "sweeper"),
	)

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		store:    store,
		blobs:    blobs,
		pipeline: pipeline,
		sweeper:  sweeper,
	}, nil
}

// Departments converts configured departments to domain values.
func Departments(list []config.DepartmentConfig) []domain.Department {
	out := make([]domain.Department, 0, len(list))
	for _, d := range list {
		id := strings.TrimSpace(d.ID)
		name := strings.TrimSpace(d.Name)
		if id == "" {
			continue
		}
		if name == "" {
			name = id
		}
		out = append(out, domain.Department{ID: id, Name: name})
	}
	return out
}

// Migrate creates the schema and seeds configured departments.
func (a *Application) Migrate(ctx context.Context) error {
	if err := a.store.Migrate(ctx); err != nil {
		return err
	}
	for _, d := range Departments(a.cfg.Pipeline.Departments) {
		if err := a.store.UpsertDepartment(ctx, d); err != nil {
			return err
		}
	}
	if remote, ok := a.blobs.(*blob.MinioStore); ok {
		if err := remote.EnsureBucket(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Handler returns the HTTP API.
func (a *Application) Handler() http.Handler {
	return httpapi.NewHandler(a.pipeline, a.store, a.cfg.HTTP.MaxUploadBytes,
		a.logger.With("component", "http")).Routes()
}

// Serve runs the HTTP API and the stale sweeper until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if err := a.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}

	server := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}
	if err := a.sweeper.Stop(shutdownCtx); err != nil {
		a.logger.Warn("stop sweeper", "error", err)
	}
	if err := a.pipeline.Wait(shutdownCtx); err != nil {
		a.logger.Warn("background jobs did not drain", "error", err)
	}

	return serveErr
}

// ClassifyFile runs a local file through the pipeline.
func (a *Application) ClassifyFile(ctx context.Context, path, uploaderID string) (usecase.ClassifyResponse, error) {
	data, name, err := readLocal(path)
	if err != nil {
		return usecase.ClassifyResponse{}, err
	}
	resp, err := a.pipeline.ClassifyDocument(ctx, usecase.ClassifyRequest{
		Source:     domain.SourceRef{Data: data},
		FileName:   name,
		MimeType:   extractor.ResolveContentType(name, data),
		UploaderID: uploaderID,
	})
	if waitErr := a.pipeline.Wait(ctx); waitErr != nil {
		a.logger.Warn("summary did not finish", "error", waitErr)
	}
	return resp, err
}

// ProcessArchiveFile expands and classifies a local zip archive.
func (a *Application) ProcessArchiveFile(ctx context.Context, path, uploaderID string) (usecase.ArchiveResult, error) {
	data, name, err := readLocal(path)
	if err != nil {
		return usecase.ArchiveResult{}, err
	}
	result, err := a.pipeline.ProcessArchive(ctx, usecase.ArchiveRequest{
		Source:     domain.SourceRef{Data: data},
		FileName:   name,
		MimeType:   extractor.ResolveContentType(name, data),
		UploaderID: uploaderID,
	})
	if waitErr := a.pipeline.Wait(ctx); waitErr != nil {
		a.logger.Warn("summaries did not finish", "error", waitErr)
	}
	return result, err
}

// Sweep runs one stale-document sweep immediately.
func (a *Application) Sweep(ctx context.Context) (int, error) {
	return a.sweeper.Sweep(ctx, time.Now())
}

// Close releases the database.
func (a *Application) Close() error {
	return a.store.Close()
}

func newBlobStore(cfg config.BlobConfig) (ports.BlobStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "minio", "s3":
		store, err := blob.NewMinioStore(cfg)
		if err != nil {
			return nil, fmt.Errorf("blob store: %w", err)
		}
		return store, nil
	case "local", "":
		store, err := blob.NewLocalStore(cfg.LocalDir)
		if err != nil {
			return nil, fmt.Errorf("blob store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported blob backend: %s", cfg.Backend)
	}
}

// fetchOptions trusts the blob store for re-hosted archive entries and nothing else.
func fetchOptions(cfg config.Config, blobs ports.BlobStore) []fetch.Option {
	var opts []fetch.Option
	if cfg.HTTP.AllowPrivateSources {
		opts = append(opts, fetch.WithPrivateNetworks())
	}
	switch store := blobs.(type) {
	case *blob.LocalStore:
		opts = append(opts, fetch.WithFileRoot(store.Root()))
	case *blob.MinioStore:
		opts = append(opts, fetch.WithTrustedHosts(hostOf(cfg.Blob.Endpoint), hostOf(cfg.Blob.PublicBaseURL)))
	}
	return opts
}

func hostOf(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return ""
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "//" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func readLocal(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	return data, filepath.Base(path), nil
}

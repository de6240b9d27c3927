package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"google.golang.org/api/option"

	"videosum/internal/metrics"
	"videosum/internal/queue"
	"videosum/internal/storage"
	"videosum/pkg/config"
	"videosum/pkg/prompts"
)

// BuildService creates the long-lived clients named by cfg and wires them
// into a Service. m may be nil.
func BuildService(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Service, error) {
	var closers []io.Closer
	fail := func(err error) (*Service, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
		return nil, err
	}

	catalog, err := loadCatalog(cfg.Pipeline.PromptsPath)
	if err != nil {
		return nil, err
	}

	staging := storage.NewLocalStorage(cfg.Storage.LocalDir, cfg.Storage.StagingDir)
	if err := staging.EnsureDirectories(); err != nil {
		return nil, err
	}

	store, signer, storeCloser, err := buildStorage(ctx, cfg, staging)
	if err != nil {
		return nil, err
	}
	if storeCloser != nil {
		closers = append(closers, storeCloser)
	}

	publisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, publisher)

	registry, err := NewRegistry(cfg.Pipeline.RegistrySize)
	if err != nil {
		return fail(fmt.Errorf("failed to create id registry: %w", err))
	}

	pipeline := NewPipeline(PipelineOptions{
		Store:             store,
		Signer:            signer,
		Publisher:         publisher,
		QueueBackend:      cfg.Queue.Backend,
		Staging:           staging,
		Catalog:           catalog,
		Registry:          registry,
		Metrics:           m,
		URLTTL:            cfg.Storage.URLTTL(),
		VerifyVideoIDs:    cfg.Pipeline.VerifyVideoIDs,
		UploadConcurrency: cfg.Pipeline.UploadConcurrency,
	})

	slog.Debug("Service built",
		"storage", cfg.Storage.Backend,
		"bucket", store.Bucket(),
		"queue", cfg.Queue.Backend,
		"topic", cfg.Queue.Topic,
		"verify_video_ids", cfg.Pipeline.VerifyVideoIDs,
	)

	return NewService(ServiceOptions{
		Config:   cfg,
		Pipeline: pipeline,
		Store:    store,
		Catalog:  catalog,
		Closers:  closers,
	}), nil
}

func loadCatalog(path string) (*prompts.Catalog, error) {
	if path != "" {
		return prompts.LoadFrom(path)
	}
	return prompts.Load()
}

func buildStorage(ctx context.Context, cfg *config.Config, local *storage.LocalStorage) (storage.ObjectStore, storage.URLSigner, io.Closer, error) {
	var (
		store  storage.ObjectStore
		signer storage.URLSigner
		closer io.Closer
	)

	switch cfg.Storage.Backend {
	case "gcs":
		var opts []option.ClientOption
		if cfg.Storage.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Storage.CredentialsFile))
		}
		gcs, err := storage.NewGCSStorage(ctx, cfg.Storage.Bucket, opts...)
		if err != nil {
			return nil, nil, nil, err
		}
		store, signer, closer = gcs, gcs, gcs
	case "s3":
		s3, err := storage.NewS3Storage(ctx, storage.S3Options{
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.S3Region,
			Endpoint:  cfg.Storage.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		store, signer = s3, s3
	case "local":
		if !cfg.Storage.DummySignedURLs {
			return nil, nil, nil, fmt.Errorf("storage backend %q cannot sign URLs; set storage.dummy_signed_urls to use placeholder URLs", cfg.Storage.Backend)
		}
		store = local
	default:
		return nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if cfg.Storage.DummySignedURLs {
		slog.Warn("Using dummy signed URLs; uploads through them will be rejected by the store", "bucket", cfg.Storage.Bucket)
		signer = storage.NewDummySigner(cfg.Storage.Bucket)
	}

	return store, signer, closer, nil
}

func buildPublisher(ctx context.Context, cfg *config.Config) (queue.Publisher, error) {
	var publisher queue.Publisher

	switch cfg.Queue.Backend {
	case "pubsub":
		var opts []option.ClientOption
		if cfg.Storage.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Storage.CredentialsFile))
		}
		ps, err := queue.NewPubSubPublisher(ctx, cfg.GCPProject, cfg.Queue.Topic, opts...)
		if err != nil {
			return nil, err
		}
		publisher = ps
	case "kafka":
		publisher = queue.NewKafkaPublisher(cfg.Queue.KafkaBrokers, cfg.Queue.Topic)
	case "log":
		publisher = queue.NewLogPublisher(cfg.Queue.Topic)
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Queue.Backend)
	}

	if cfg.Queue.JournalPath != "" {
		publisher = queue.NewJournal(publisher, cfg.Queue.JournalPath)
	}
	return publisher, nil
}

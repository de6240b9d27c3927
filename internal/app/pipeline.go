package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"videosum/internal/app/model"
	"videosum/internal/identifier"
	"videosum/internal/metrics"
	"videosum/internal/queue"
	"videosum/internal/storage"
	"videosum/pkg/prompts"
)

const defaultUploadConcurrency = 4

var (
	ErrNoVideoIDs     = errors.New("no video ids submitted")
	ErrInvalidVideoID = errors.New("invalid video id")
	ErrUnknownVideoID = errors.New("unknown video id")
)

// Stager copies an incoming upload to local disk before it is sent on.
type Stager interface {
	Stage(ctx context.Context, r io.Reader, name string) (string, error)
}

type PipelineOptions struct {
	Store             storage.ObjectStore
	Signer            storage.URLSigner
	Publisher         queue.Publisher
	QueueBackend      string
	Staging           Stager
	Catalog           *prompts.Catalog
	Registry          *Registry
	Metrics           *metrics.Metrics
	URLTTL            time.Duration
	VerifyVideoIDs    bool
	UploadConcurrency int
	Now               func() time.Time
}

type Pipeline struct {
	store             storage.ObjectStore
	signer            storage.URLSigner
	publisher         queue.Publisher
	queueBackend      string
	staging           Stager
	catalog           *prompts.Catalog
	registry          *Registry
	metrics           *metrics.Metrics
	urlTTL            time.Duration
	verifyVideoIDs    bool
	uploadConcurrency int
	now               func() time.Time
}

type URLResult struct {
	Filename string
	Entry    model.SignedURLEntry
	Err      error
}

type PublishResult struct {
	VideoID   string
	MessageID string
	Err       error
}

type UploadResult struct {
	Filename string
	VideoID  string
	Path     string
	Err      error
}

type UploadStatus struct {
	VideoID  string
	Uploaded bool
	Err      error
}

func NewPipeline(opts PipelineOptions) *Pipeline {
	p := &Pipeline{
		store:             opts.Store,
		signer:            opts.Signer,
		publisher:         opts.Publisher,
		queueBackend:      opts.QueueBackend,
		staging:           opts.Staging,
		catalog:           opts.Catalog,
		registry:          opts.Registry,
		metrics:           opts.Metrics,
		urlTTL:            opts.URLTTL,
		verifyVideoIDs:    opts.VerifyVideoIDs,
		uploadConcurrency: opts.UploadConcurrency,
		now:               opts.Now,
	}
	if p.urlTTL <= 0 {
		p.urlTTL = storage.DefaultURLTTL
	}
	if p.uploadConcurrency <= 0 {
		p.uploadConcurrency = defaultUploadConcurrency
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.queueBackend == "" {
		p.queueBackend = "unknown"
	}
	return p
}

// RequestUploadURLs mints an id and a PUT URL for every descriptor. A failed
// item is reported in its result and does not affect the others.
func (p *Pipeline) RequestUploadURLs(ctx context.Context, files []model.FileDescriptor) []URLResult {
	results := make([]URLResult, len(files))

	for i, file := range files {
		results[i] = p.requestUploadURL(ctx, file)
		p.metrics.UploadURL(results[i].Err)
	}

	return results
}

func (p *Pipeline) requestUploadURL(ctx context.Context, file model.FileDescriptor) URLResult {
	result := URLResult{Filename: file.Filename}

	id, err := identifier.For(file)
	if err != nil {
		slog.Error("Failed to mint video id", "filename", file.Filename, "error", err)
		result.Err = err
		return result
	}

	url, err := p.signer.SignedURL(ctx, id, http.MethodPut, p.urlTTL)
	if err != nil {
		slog.Error("Failed to issue upload URL", "filename", file.Filename, "video_id", id, "error", err)
		result.Err = err
		return result
	}

	p.registry.Add(id)
	slog.Debug("Issued upload URL", "filename", file.Filename, "video_id", id)
	result.Entry = model.SignedURLEntry{VideoID: id, SignedURL: url}
	return result
}

// SubmitMetadata publishes one message per video id, each carrying its own
// copy of the shared options. Only a malformed form fails the whole call.
func (p *Pipeline) SubmitMetadata(ctx context.Context, form model.FormData) ([]PublishResult, error) {
	if len(form.VideoIDs) == 0 {
		return nil, ErrNoVideoIDs
	}
	if p.catalog != nil {
		if err := p.catalog.Validate(selection(form.ProcessingOptions)); err != nil {
			return nil, err
		}
	}

	results := make([]PublishResult, len(form.VideoIDs))
	for i, raw := range form.VideoIDs {
		id := strings.TrimSpace(raw)
		results[i] = PublishResult{VideoID: id}

		if err := p.checkVideoID(ctx, id); err != nil {
			slog.Warn("Rejected video id", "video_id", id, "error", err)
			results[i].Err = err
			continue
		}

		msg := model.Message{
			VideoID:             id,
			Metadata:            form.ProcessingOptions,
			ProcessingTimestamp: p.now().UTC(),
		}

		messageID, err := p.publisher.Publish(ctx, msg)
		p.metrics.Published(p.queueBackend, err)
		if err != nil {
			slog.Error("Failed to publish processing request", "video_id", id, "error", err)
			results[i].Err = err
			continue
		}

		slog.Info("Published processing request", "video_id", id, "message_id", messageID)
		results[i].MessageID = messageID
	}

	return results, nil
}

func (p *Pipeline) checkVideoID(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidVideoID)
	}
	if !p.verifyVideoIDs {
		return nil
	}

	if _, _, err := identifier.Parse(id); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidVideoID, err)
	}
	if p.registry.Contains(id) {
		return nil
	}

	exists, err := p.store.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownVideoID, id)
	}
	return nil
}

// UploadFiles sends multipart uploads to the object store in parallel. The
// order of results matches files.
func (p *Pipeline) UploadFiles(ctx context.Context, files []*multipart.FileHeader) []UploadResult {
	results := make([]UploadResult, len(files))

	var g errgroup.Group
	g.SetLimit(p.uploadConcurrency)
	for i, fh := range files {
		i, fh := i, fh
		g.Go(func() error {
			results[i] = p.uploadFile(ctx, fh)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (p *Pipeline) uploadFile(ctx context.Context, fh *multipart.FileHeader) UploadResult {
	id, err := identifier.FromUpload(fh)
	if err != nil {
		return UploadResult{Err: err}
	}
	result := UploadResult{Filename: fh.Filename, VideoID: id}

	src, err := fh.Open()
	if err != nil {
		result.Err = fmt.Errorf("failed to open upload: %w", err)
		return result
	}
	defer func() { _ = src.Close() }()

	body := io.Reader(src)
	if p.staging != nil {
		staged, err := p.staging.Stage(ctx, src, fh.Filename)
		if err != nil {
			result.Err = err
			return result
		}
		defer func() { _ = os.Remove(staged) }()

		f, err := os.Open(staged)
		if err != nil {
			result.Err = fmt.Errorf("failed to open staged file: %w", err)
			return result
		}
		defer func() { _ = f.Close() }()
		body = f
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = storage.UploadContentType
	}

	path, err := p.store.Upload(ctx, body, id, contentType)
	if err != nil {
		slog.Error("Upload failed", "filename", fh.Filename, "video_id", id, "error", err)
		result.Err = err
		return result
	}

	p.registry.Add(id)
	p.metrics.Uploaded(fh.Size)
	slog.Info("Uploaded file", "filename", fh.Filename, "path", path)
	result.Path = path
	return result
}

// CheckUploads reports whether each id has arrived in the object store.
func (p *Pipeline) CheckUploads(ctx context.Context, ids []string) []UploadStatus {
	statuses := make([]UploadStatus, len(ids))

	for i, id := range ids {
		statuses[i].VideoID = id
		if _, _, err := identifier.Parse(id); err != nil {
			statuses[i].Err = fmt.Errorf("%w: %w", ErrInvalidVideoID, err)
			continue
		}
		statuses[i].Uploaded, statuses[i].Err = p.store.Exists(ctx, id)
	}

	return statuses
}

// Instructions renders the worker instruction for a set of options, for
// previews.
func (p *Pipeline) Instructions(opts model.ProcessingOptions) (string, error) {
	if p.catalog == nil {
		return "", errors.New("no summary catalog loaded")
	}
	return p.catalog.Render(selection(opts))
}

func (p *Pipeline) Catalog() *prompts.Catalog {
	return p.catalog
}

func selection(opts model.ProcessingOptions) prompts.Selection {
	return prompts.Selection{
		SummaryType:        opts.SummaryType,
		AudienceContext:    opts.AudienceContext,
		CustomPrompt:       opts.CustomPrompt,
		OutputFormat:       opts.OutputFormat,
		DetailLevel:        opts.DetailLevel,
		IncludeScreenshots: opts.IncludeScreenshots,
	}
}

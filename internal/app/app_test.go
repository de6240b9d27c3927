package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"videosum/internal/app/model"
	"videosum/internal/identifier"
	"videosum/internal/storage"
	"videosum/pkg/prompts"
)

type mockPublisher struct {
	mu       sync.Mutex
	messages []model.Message
	failFor  map[string]bool
}

func (m *mockPublisher) Publish(_ context.Context, payload any) (string, error) {
	msg := payload.(model.Message)
	if m.failFor[msg.VideoID] {
		return "", errors.New("transport unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return "msg-" + msg.VideoID, nil
}

func (m *mockPublisher) Close() error { return nil }

type mockStore struct {
	objects map[string]bool
	err     error
}

func (m *mockStore) Exists(_ context.Context, blob string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.objects[blob], nil
}

func (m *mockStore) Upload(_ context.Context, _ io.Reader, blob, _ string) (string, error) {
	return "mem://" + blob, nil
}

func (m *mockStore) Bucket() string { return "mem" }

type failingSigner struct{}

func (failingSigner) SignedURL(context.Context, string, string, time.Duration) (string, error) {
	return "", errors.New("no credentials")
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestRequestUploadURLs(t *testing.T) {
	registry, _ := NewRegistry(10)
	p := NewPipeline(PipelineOptions{
		Signer:   storage.NewDummySigner("dev-bucket"),
		Registry: registry,
	})

	results := p.RequestUploadURLs(context.Background(), []model.FileDescriptor{
		{Filename: "video.mp4", ContentType: "video/mp4"},
		{Filename: "archive.tar.gz"},
	})

	if len(results) != 2 {
		t.Fatalf("RequestUploadURLs() returned %d results, want 2", len(results))
	}

	wantExt := []string{"mp4", "gz"}
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("result %d error = %v", i, r.Err)
		}
		if !strings.HasSuffix(r.Entry.VideoID, "."+wantExt[i]) {
			t.Errorf("result %d video_id = %q, want suffix .%s", i, r.Entry.VideoID, wantExt[i])
		}
		if !strings.Contains(r.Entry.SignedURL, "dev-bucket") {
			t.Errorf("result %d signed_url = %q, want bucket name", i, r.Entry.SignedURL)
		}
		if !registry.Contains(r.Entry.VideoID) {
			t.Errorf("result %d id %q not recorded in registry", i, r.Entry.VideoID)
		}
	}
	if results[0].Entry.VideoID == results[1].Entry.VideoID {
		t.Error("RequestUploadURLs() issued duplicate ids")
	}
}

func TestRequestUploadURLsPartialFailure(t *testing.T) {
	tests := []struct {
		name      string
		signer    storage.URLSigner
		files     []model.FileDescriptor
		wantFails []bool
	}{
		{
			name:      "emptyFilename",
			signer:    storage.NewDummySigner("b"),
			files:     []model.FileDescriptor{{Filename: "ok.mp4"}, {Filename: " "}},
			wantFails: []bool{false, true},
		},
		{
			name:      "signerFails",
			signer:    failingSigner{},
			files:     []model.FileDescriptor{{Filename: "a.mp4"}, {Filename: "b.mp4"}},
			wantFails: []bool{true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline(PipelineOptions{Signer: tt.signer})
			results := p.RequestUploadURLs(context.Background(), tt.files)

			for i, r := range results {
				if (r.Err != nil) != tt.wantFails[i] {
					t.Errorf("result %d error = %v, want failure %v", i, r.Err, tt.wantFails[i])
				}
				if r.Filename != tt.files[i].Filename {
					t.Errorf("result %d filename = %q, want %q", i, r.Filename, tt.files[i].Filename)
				}
			}
		})
	}
}

func TestRequestUploadURLsLogsFailedItems(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	p := NewPipeline(PipelineOptions{Signer: storage.NewDummySigner("b")})
	results := p.RequestUploadURLs(context.Background(), []model.FileDescriptor{{Filename: " "}})

	if len(results) != 1 || !errors.Is(results[0].Err, identifier.ErrEmptyName) {
		t.Fatalf("RequestUploadURLs() = %+v, want one ErrEmptyName result", results)
	}
	if !strings.Contains(logs.String(), "Failed to mint video id") {
		t.Errorf("failed item was not logged, got %q", logs.String())
	}
}

func TestSubmitMetadataPublishesOnePerID(t *testing.T) {
	pub := &mockPublisher{}
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	p := NewPipeline(PipelineOptions{
		Publisher: pub,
		Now:       func() time.Time { return fixed },
	})

	opts := model.ProcessingOptions{
		SummaryType:        "executive",
		AudienceContext:    "leadership",
		OutputFormat:       "markdown",
		IncludeScreenshots: true,
	}
	results, err := p.SubmitMetadata(context.Background(), model.FormData{
		VideoIDs:          []string{"a.mp4", "b.mp4"},
		ProcessingOptions: opts,
	})
	if err != nil {
		t.Fatalf("SubmitMetadata() error = %v", err)
	}

	if len(pub.messages) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.messages))
	}
	for i, want := range []string{"a.mp4", "b.mp4"} {
		msg := pub.messages[i]
		if msg.VideoID != want {
			t.Errorf("message %d video_id = %q, want %q", i, msg.VideoID, want)
		}
		if msg.Metadata != opts {
			t.Errorf("message %d metadata = %+v, want %+v", i, msg.Metadata, opts)
		}
		if !msg.ProcessingTimestamp.Equal(fixed) {
			t.Errorf("message %d timestamp = %v, want %v", i, msg.ProcessingTimestamp, fixed)
		}
		if results[i].MessageID != "msg-"+want || results[i].Err != nil {
			t.Errorf("result %d = %+v", i, results[i])
		}
	}
}

func TestSubmitMetadataReportsPublishFailure(t *testing.T) {
	pub := &mockPublisher{failFor: map[string]bool{"b.mp4": true}}
	p := NewPipeline(PipelineOptions{Publisher: pub})

	results, err := p.SubmitMetadata(context.Background(), model.FormData{
		VideoIDs:          []string{"a.mp4", "b.mp4", "c.mp4"},
		ProcessingOptions: model.ProcessingOptions{SummaryType: "executive"},
	})
	if err != nil {
		t.Fatalf("SubmitMetadata() error = %v", err)
	}

	if results[1].Err == nil {
		t.Error("failed publish was not reported")
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("unexpected failures: %+v", results)
	}
	if len(pub.messages) != 2 {
		t.Errorf("published %d messages, want 2", len(pub.messages))
	}
}

func TestSubmitMetadataInvalidForm(t *testing.T) {
	catalog, err := prompts.Default()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		form    model.FormData
		wantErr error
	}{
		{name: "noIDs", form: model.FormData{ProcessingOptions: model.ProcessingOptions{SummaryType: "executive"}}, wantErr: ErrNoVideoIDs},
		{name: "noSummaryType", form: model.FormData{VideoIDs: []string{"a.mp4"}}, wantErr: prompts.ErrInvalidOptions},
		{name: "unknownFormat", form: model.FormData{VideoIDs: []string{"a.mp4"}, ProcessingOptions: model.ProcessingOptions{SummaryType: "executive", OutputFormat: "docx"}}, wantErr: prompts.ErrInvalidOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &mockPublisher{}
			p := NewPipeline(PipelineOptions{Publisher: pub, Catalog: catalog})

			_, err := p.SubmitMetadata(context.Background(), tt.form)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SubmitMetadata() error = %v, want %v", err, tt.wantErr)
			}
			if len(pub.messages) != 0 {
				t.Errorf("published %d messages for invalid form", len(pub.messages))
			}
		})
	}
}

func TestSubmitMetadataVerification(t *testing.T) {
	issued, _ := identifier.New("issued.mp4")
	stored, _ := identifier.New("stored.mp4")
	forged, _ := identifier.New("forged.mp4")

	registry, _ := NewRegistry(10)
	registry.Add(issued)

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{name: "inRegistry", id: issued},
		{name: "inStore", id: stored},
		{name: "unknown", id: forged, wantErr: ErrUnknownVideoID},
		{name: "malformed", id: "a.mp4", wantErr: ErrInvalidVideoID},
		{name: "empty", id: "", wantErr: ErrInvalidVideoID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &mockPublisher{}
			p := NewPipeline(PipelineOptions{
				Publisher:      pub,
				Store:          &mockStore{objects: map[string]bool{stored: true}},
				Registry:       registry,
				VerifyVideoIDs: true,
			})

			results, err := p.SubmitMetadata(context.Background(), model.FormData{
				VideoIDs:          []string{tt.id},
				ProcessingOptions: model.ProcessingOptions{SummaryType: "executive"},
			})
			if err != nil {
				t.Fatalf("SubmitMetadata() error = %v", err)
			}

			if tt.wantErr == nil {
				if results[0].Err != nil {
					t.Errorf("result error = %v, want nil", results[0].Err)
				}
				if len(pub.messages) != 1 {
					t.Errorf("published %d messages, want 1", len(pub.messages))
				}
				return
			}
			if !errors.Is(results[0].Err, tt.wantErr) {
				t.Errorf("result error = %v, want %v", results[0].Err, tt.wantErr)
			}
			if len(pub.messages) != 0 {
				t.Errorf("published %d messages for rejected id", len(pub.messages))
			}
		})
	}
}

func TestSubmitMetadataWithoutVerificationTrustsIDs(t *testing.T) {
	pub := &mockPublisher{}
	p := NewPipeline(PipelineOptions{Publisher: pub, Store: &mockStore{err: errors.New("must not be called")}})

	results, err := p.SubmitMetadata(context.Background(), model.FormData{VideoIDs: []string{"anything"}})
	if err != nil {
		t.Fatalf("SubmitMetadata() error = %v", err)
	}
	if results[0].Err != nil {
		t.Errorf("result error = %v, want nil", results[0].Err)
	}
}

func multipartFiles(t *testing.T, files map[string]string) []*multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write([]byte(content))
	}
	_ = w.Close()

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["files"]
}

func TestUploadFiles(t *testing.T) {
	tmpDir := t.TempDir()
	local := storage.NewLocalStorage(filepath.Join(tmpDir, "bucket"), filepath.Join(tmpDir, "staging"))
	registry, _ := NewRegistry(10)
	p := NewPipeline(PipelineOptions{
		Store:             local,
		Staging:           local,
		Registry:          registry,
		UploadConcurrency: 2,
	})

	headers := multipartFiles(t, map[string]string{
		"one.mp4":   "first",
		"two.mov":   "second",
		"three.mkv": "third",
	})

	results := p.UploadFiles(context.Background(), headers)
	if len(results) != 3 {
		t.Fatalf("UploadFiles() returned %d results, want 3", len(results))
	}

	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("result %d error = %v", i, r.Err)
		}
		if r.Filename != headers[i].Filename {
			t.Errorf("result %d filename = %q, want %q", i, r.Filename, headers[i].Filename)
		}
		if !strings.HasPrefix(r.Path, "file://") {
			t.Errorf("result %d path = %q, want file:// path", i, r.Path)
		}
		exists, err := local.Exists(context.Background(), r.VideoID)
		if err != nil || !exists {
			t.Errorf("uploaded blob %q missing: exists=%v err=%v", r.VideoID, exists, err)
		}
		if !registry.Contains(r.VideoID) {
			t.Errorf("uploaded id %q not recorded", r.VideoID)
		}
	}
}

func TestCheckUploads(t *testing.T) {
	present, _ := identifier.New("present.mp4")
	absent, _ := identifier.New("absent.mp4")
	p := NewPipeline(PipelineOptions{Store: &mockStore{objects: map[string]bool{present: true}}})

	statuses := p.CheckUploads(context.Background(), []string{present, absent, "../etc/passwd"})

	if !statuses[0].Uploaded || statuses[0].Err != nil {
		t.Errorf("status 0 = %+v, want uploaded", statuses[0])
	}
	if statuses[1].Uploaded || statuses[1].Err != nil {
		t.Errorf("status 1 = %+v, want not uploaded", statuses[1])
	}
	if !errors.Is(statuses[2].Err, ErrInvalidVideoID) {
		t.Errorf("status 2 error = %v, want ErrInvalidVideoID", statuses[2].Err)
	}
}

func TestInstructions(t *testing.T) {
	catalog, _ := prompts.Default()
	p := NewPipeline(PipelineOptions{Catalog: catalog})

	out, err := p.Instructions(model.ProcessingOptions{SummaryType: "key_points", OutputFormat: "text"})
	if err != nil {
		t.Fatalf("Instructions() error = %v", err)
	}
	if !strings.Contains(out, "Respond in text.") {
		t.Errorf("Instructions() = %q", out)
	}

	if _, err := NewPipeline(PipelineOptions{}).Instructions(model.ProcessingOptions{}); err == nil {
		t.Error("Instructions() without catalog should fail")
	}
}

func TestRegistryEvictsOldest(t *testing.T) {
	r, err := NewRegistry(2)
	if err != nil {
		t.Fatal(err)
	}

	r.Add("a")
	r.Add("b")
	r.Add("c")

	if r.Contains("a") {
		t.Error("oldest id was not evicted")
	}
	if !r.Contains("c") || r.Len() != 2 {
		t.Errorf("registry len = %d, want 2 with c present", r.Len())
	}

	var nilRegistry *Registry
	nilRegistry.Add("x")
	if nilRegistry.Contains("x") {
		t.Error("nil registry reported an id")
	}
}

func TestServiceClose(t *testing.T) {
	var order []string
	svc := NewService(ServiceOptions{
		Closers: []io.Closer{
			closerFunc(func() error { order = append(order, "first"); return nil }),
			closerFunc(func() error { order = append(order, "second"); return errors.New("boom") }),
		},
	})

	if err := svc.Close(); err == nil {
		t.Error("Close() should return the closer error")
	}
	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Errorf("close order = %v, want [second first]", order)
	}
	if err := svc.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

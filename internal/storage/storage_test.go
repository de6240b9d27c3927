package storage

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidateMethod(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		want    string
		wantErr bool
	}{
		{name: "get", method: "GET", want: "GET"},
		{name: "lowercasePut", method: "put", want: "PUT"},
		{name: "post", method: "POST", want: "POST"},
		{name: "delete", method: " DELETE ", want: "DELETE"},
		{name: "patch", method: "PATCH", wantErr: true},
		{name: "empty", method: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateMethod(tt.method)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateMethod(%q) error = %v, wantErr %v", tt.method, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnsupportedMethod) {
				t.Errorf("ValidateMethod(%q) error = %v, want ErrUnsupportedMethod", tt.method, err)
			}
			if got != tt.want {
				t.Errorf("ValidateMethod(%q) = %q, want %q", tt.method, got, tt.want)
			}
		})
	}
}

func TestLocalStorageUploadAndExists(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	s := NewLocalStorage(filepath.Join(tmpDir, "bucket"), filepath.Join(tmpDir, "staging"))

	path, err := s.Upload(ctx, strings.NewReader("video bytes"), "clip.mp4", "video/mp4")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !strings.HasPrefix(path, "file://") || !strings.HasSuffix(path, "/clip.mp4") {
		t.Errorf("Upload() = %q, want file:// path ending in /clip.mp4", path)
	}

	exists, err := s.Exists(ctx, "clip.mp4")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("Exists() = false for uploaded blob")
	}

	exists, err = s.Exists(ctx, "missing.mp4")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Exists() = true for missing blob")
	}
}

type brokenReader struct {
	data []byte
	err  error
}

func (r *brokenReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestLocalStorageFailedUploadLeavesNothing(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "bucket")
	s := NewLocalStorage(root, filepath.Join(root, "staging"))

	connReset := errors.New("connection reset")
	_, err := s.Upload(ctx, &brokenReader{data: []byte("first half"), err: connReset}, "clip.mp4", "video/mp4")
	if !errors.Is(err, ErrUploadFailed) || !errors.Is(err, connReset) {
		t.Fatalf("Upload() error = %v, want ErrUploadFailed wrapping the read error", err)
	}

	exists, err := s.Exists(ctx, "clip.mp4")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Exists() = true after a failed upload")
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("bucket holds %d leftover file(s) after a failed upload", len(entries))
	}
}

func TestLocalStorageUploadReplacesBlob(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	s := NewLocalStorage(tmpDir, filepath.Join(tmpDir, "staging"))

	for _, body := range []string{"first", "second"} {
		if _, err := s.Upload(ctx, strings.NewReader(body), "clip.mp4", ""); err != nil {
			t.Fatalf("Upload(%q) error = %v", body, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "clip.mp4"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "second" {
		t.Errorf("blob content = %q, want %q", data, "second")
	}
}

func TestLocalStorageUploadRejectsBadNames(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{name: "empty", blob: ""},
		{name: "traversal", blob: "../escape.mp4"},
		{name: "root", blob: "/"},
	}

	tmpDir := t.TempDir()
	s := NewLocalStorage(tmpDir, tmpDir)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Upload(context.Background(), strings.NewReader("x"), tt.blob, "")
			if !errors.Is(err, ErrUploadFailed) {
				t.Errorf("Upload(%q) error = %v, want ErrUploadFailed", tt.blob, err)
			}
		})
	}
}

func TestLocalStorageStage(t *testing.T) {
	tmpDir := t.TempDir()
	s := NewLocalStorage(tmpDir, filepath.Join(tmpDir, "staging"))

	path, err := s.Stage(context.Background(), strings.NewReader("payload"), "talk.webm")
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("staged content = %q, want %q", data, "payload")
	}
	if filepath.Dir(path) != filepath.Join(tmpDir, "staging") {
		t.Errorf("Stage() path = %q, want it under staging dir", path)
	}
}

func TestDummySignerSignedURL(t *testing.T) {
	d := NewDummySigner("dev-bucket")
	d.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }

	raw, err := d.SignedURL(context.Background(), "abc.mp4", "PUT", 0)
	if err != nil {
		t.Fatalf("SignedURL() error = %v", err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}
	if u.Host != "storage.googleapis.com" || u.Path != "/dev-bucket/abc.mp4" {
		t.Errorf("SignedURL() = %q, want storage.googleapis.com/dev-bucket/abc.mp4", raw)
	}

	q := u.Query()
	want := map[string]string{
		"X-Goog-Algorithm":     "GOOG4-RSA-SHA256",
		"X-Goog-Date":          "20250304T050607Z",
		"X-Goog-Expires":       "900",
		"X-Goog-SignedHeaders": "host",
	}
	for k, v := range want {
		if got := q.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if !strings.HasPrefix(q.Get("X-Goog-Credential"), dummyServiceAccount) {
		t.Errorf("X-Goog-Credential = %q", q.Get("X-Goog-Credential"))
	}
	if len(q.Get("X-Goog-Signature")) != 64 {
		t.Errorf("X-Goog-Signature = %q, want 64 hex chars", q.Get("X-Goog-Signature"))
	}
}

func TestDummySignerRejectsMethod(t *testing.T) {
	d := NewDummySigner("dev-bucket")

	_, err := d.SignedURL(context.Background(), "abc.mp4", "PATCH", time.Minute)
	if !errors.Is(err, ErrUnsupportedMethod) {
		t.Errorf("SignedURL() error = %v, want ErrUnsupportedMethod", err)
	}
}

func TestDummySignerCustomTTL(t *testing.T) {
	d := NewDummySigner("dev-bucket")

	raw, err := d.SignedURL(context.Background(), "abc.mp4", "GET", 5*time.Minute)
	if err != nil {
		t.Fatalf("SignedURL() error = %v", err)
	}
	if !strings.Contains(raw, "X-Goog-Expires=300") {
		t.Errorf("SignedURL() = %q, want X-Goog-Expires=300", raw)
	}
}

package identifier

import (
	"errors"
	"mime/multipart"
	"strings"
	"testing"
)

type namedFile struct{ name string }

func (n namedFile) GetFilename() string { return n.name }

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		wantExt string
		wantErr error
	}{
		{name: "video", file: "video.mp4", wantExt: "mp4"},
		{name: "document", file: "document.pdf", wantExt: "pdf"},
		{name: "image", file: "image.jpeg", wantExt: "jpeg"},
		{name: "doubleExtension", file: "archive.tar.gz", wantExt: "gz"},
		{name: "withDirectory", file: "clips/intro.mov", wantExt: "mov"},
		{name: "dottedDirectory", file: "v1.2/intro", wantExt: "intro"},
		{name: "noExtension", file: "README", wantExt: "README"},
		{name: "trailingDot", file: "clip.", wantExt: ""},
		{name: "empty", file: "  ", wantErr: ErrEmptyName},
		{name: "directoryOnly", file: "clips/", wantErr: ErrEmptyName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := New(tt.file)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("New(%q) error = %v, want %v", tt.file, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q) error = %v", tt.file, err)
			}

			_, ext, err := Parse(id)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", id, err)
			}
			if ext != tt.wantExt {
				t.Errorf("New(%q) extension = %q, want %q", tt.file, ext, tt.wantExt)
			}
			if !strings.HasSuffix(id, "."+tt.wantExt) {
				t.Errorf("New(%q) = %q, want suffix .%s", tt.file, id, tt.wantExt)
			}
		})
	}
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := New("video.mp4")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if seen[id] {
			t.Fatalf("New() returned duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestFor(t *testing.T) {
	tests := []struct {
		name    string
		src     any
		wantExt string
		wantErr error
	}{
		{name: "string", src: "talk.webm", wantExt: ".webm"},
		{name: "fileHeader", src: &multipart.FileHeader{Filename: "talk.mkv"}, wantExt: ".mkv"},
		{name: "named", src: namedFile{name: "talk.avi"}, wantExt: ".avi"},
		{name: "nilFileHeader", src: (*multipart.FileHeader)(nil), wantErr: ErrUnsupportedInputType},
		{name: "integer", src: 42, wantErr: ErrUnsupportedInputType},
		{name: "nil", src: nil, wantErr: ErrUnsupportedInputType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := For(tt.src)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("For(%v) error = %v, want %v", tt.src, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("For(%v) error = %v", tt.src, err)
			}
			if !strings.HasSuffix(id, tt.wantExt) {
				t.Errorf("For(%v) = %q, want suffix %q", tt.src, id, tt.wantExt)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "withExtension", id: "3f1c2e4a-9b0d-4c7e-8f21-6a5b4c3d2e1f.mp4"},
		{name: "bare", id: "3f1c2e4a-9b0d-4c7e-8f21-6a5b4c3d2e1f"},
		{name: "plainName", id: "a.mp4", wantErr: true},
		{name: "pathTraversal", id: "3f1c2e4a-9b0d-4c7e-8f21-6a5b4c3d2e1f.mp4/../x", wantErr: true},
		{name: "compactUUID", id: "3f1c2e4a9b0d4c7e8f216a5b4c3d2e1f.mp4", wantErr: true},
		{name: "empty", id: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformed) {
				t.Errorf("Parse(%q) error = %v, want ErrMalformed", tt.id, err)
			}
		})
	}
}

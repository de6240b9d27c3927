// Package identifier mints the content identifiers attached to uploaded videos.
//
// An identifier is a random UUID followed by the original file extension,
// e.g. "3f1c2e4a-9b0d-4c7e-8f21-6a5b4c3d2e1f.mp4". It doubles as the blob name
// in the object store and as the correlation key in published messages.
package identifier

import (
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedInputType = errors.New("unsupported input type")
	ErrEmptyName            = errors.New("empty file name")
	ErrMalformed            = errors.New("malformed identifier")
)

// Named is implemented by request types that carry a client file name.
type Named interface {
	GetFilename() string
}

// New returns a fresh identifier for the given file name.
func New(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}

	base := baseName(name)
	if base == "" {
		return "", ErrEmptyName
	}

	return uuid.NewString() + "." + Extension(base), nil
}

// FromUpload returns a fresh identifier for a multipart upload.
func FromUpload(fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", fmt.Errorf("%w: nil file header", ErrUnsupportedInputType)
	}
	return New(fh.Filename)
}

// For accepts a plain file name, a multipart upload or anything Named.
func For(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return New(v)
	case *multipart.FileHeader:
		return FromUpload(v)
	case Named:
		return New(v.GetFilename())
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedInputType, src)
	}
}

// Extension returns the text after the last dot of the base name. A name
// without a dot is its own extension, so "README" yields "README".
func Extension(name string) string {
	base := baseName(name)
	if i := strings.LastIndex(base, "."); i >= 0 {
		return base[i+1:]
	}
	return base
}

func baseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Parse splits an identifier into its UUID and extension parts.
func Parse(id string) (uuid.UUID, string, error) {
	head, ext, _ := strings.Cut(id, ".")
	u, err := uuid.Parse(head)
	if err != nil || len(head) != 36 {
		return uuid.Nil, "", fmt.Errorf("%w: %q", ErrMalformed, id)
	}
	if strings.ContainsAny(ext, `/\.`) {
		return uuid.Nil, "", fmt.Errorf("%w: %q", ErrMalformed, id)
	}
	return u, ext, nil
}

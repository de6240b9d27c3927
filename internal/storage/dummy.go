package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const dummyServiceAccount = "dummy-service-account@example.iam.gserviceaccount.com"

// DummySigner produces URLs shaped like GCS V4 signed URLs without any real
// signature. It exists for local development where no service account key is
// available; the URLs it returns are rejected by GCS.
type DummySigner struct {
	bucket string
	now    func() time.Time
}

func NewDummySigner(bucket string) *DummySigner {
	return &DummySigner{bucket: bucket, now: time.Now}
}

func (d *DummySigner) SignedURL(_ context.Context, blob, method string, ttl time.Duration) (string, error) {
	if _, err := ValidateMethod(method); err != nil {
		return "", err
	}

	sig := make([]byte, 32)
	if _, err := rand.Read(sig); err != nil {
		return "", fmt.Errorf("failed to generate signature: %w", err)
	}

	now := d.now().UTC()
	q := url.Values{}
	q.Set("X-Goog-Algorithm", "GOOG4-RSA-SHA256")
	q.Set("X-Goog-Credential", fmt.Sprintf("%s/%s/auto/storage/goog4_request", dummyServiceAccount, now.Format("20060102")))
	q.Set("X-Goog-Date", now.Format("20060102T150405Z"))
	q.Set("X-Goog-Expires", strconv.Itoa(int(ttlOrDefault(ttl).Seconds())))
	q.Set("X-Goog-SignedHeaders", "host")
	q.Set("X-Goog-Signature", hex.EncodeToString(sig))

	u := url.URL{
		Scheme:   "https",
		Host:     "storage.googleapis.com",
		Path:     "/" + d.bucket + "/" + blob,
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

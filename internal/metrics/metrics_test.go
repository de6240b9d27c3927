package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest("GET", "/", 200, 10*time.Millisecond)
	m.ObserveRequest("POST", "/submit-form-data", 502, time.Millisecond)
	m.UploadURL(nil)
	m.UploadURL(errors.New("boom"))
	m.Published("pubsub", nil)
	m.Published("pubsub", nil)
	m.Uploaded(1024)
	m.Uploaded(-1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("POST", "/submit-form-data", "5xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploadURLsIssued.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.messagesTotal.WithLabelValues("pubsub", "ok")))
	assert.Equal(t, 1024.0, testutil.ToFloat64(m.bytesUploaded))
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := New(reg)
	second := New(reg)

	first.Published("kafka", nil)
	second.Published("kafka", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(first.messagesTotal.WithLabelValues("kafka", "ok")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("GET", "", 200, time.Second)
		m.UploadURL(nil)
		m.Published("log", nil)
		m.Uploaded(10)
	})
}

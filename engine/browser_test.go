package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cdpRecorder is a proto.Client that records one call and fails it with err.
type cdpRecorder struct {
	method string
	params []byte
	err    error
}

func (r *cdpRecorder) Call(_ context.Context, _, method string, params any) ([]byte, error) {
	r.method = method
	r.params, _ = json.Marshal(params)
	if r.err != nil {
		return nil, r.err
	}
	return []byte("{}"), nil
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestSetExtraHeaders(t *testing.T) {
	logs := captureLogs(t)
	rec := &cdpRecorder{}

	setExtraHeaders(rec, pageHeaders)

	assert.Equal(t, "Network.setExtraHTTPHeaders", rec.method)
	var sent struct {
		Headers map[string]string `json:"headers"`
	}
	require.NoError(t, json.Unmarshal(rec.params, &sent))
	assert.Equal(t, "en-US,en;q=0.9,ar;q=0.8", sent.Headers["Accept-Language"])
	assert.Empty(t, logs.String())
}

func TestSetExtraHeaders_LogsFailure(t *testing.T) {
	logs := captureLogs(t)

	setExtraHeaders(&cdpRecorder{err: errors.New("target closed")}, pageHeaders)

	assert.Contains(t, logs.String(), "set extra headers failed")
	assert.Contains(t, logs.String(), "target closed")
}

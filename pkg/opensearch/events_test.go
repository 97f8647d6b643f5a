package opensearch_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rollout/pkg/metrics"
	"github.com/dmitrymomot/rollout/pkg/opensearch"
)

type fakeBulk struct {
	index  string
	body   []byte
	status int
	reply  string
}

func (f *fakeBulk) Bulk(_ context.Context, index string, body io.Reader) (*opensearchapi.Response, error) {
	f.index = index
	b, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &opensearchapi.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(strings.NewReader(f.reply)),
		Header:     http.Header{},
	}, nil
}

func TestEventWriter(t *testing.T) {
	t.Parallel()

	events := []metrics.Event{
		metrics.NewEvent(metrics.EventRender, "checkout-v2", nil),
		metrics.NewEvent(metrics.EventRollback, "checkout-v2", map[string]any{"reason": "consecutive_errors"}),
	}

	t.Run("writes ndjson", func(t *testing.T) {
		t.Parallel()
		f := &fakeBulk{status: 200, reply: `{"errors":false,"items":[]}`}
		w := opensearch.NewEventWriter(f, "")
		require.NoError(t, w.WriteBatch(context.Background(), events))
		assert.Equal(t, "flagd-events", f.index)

		var lines []map[string]any
		sc := bufio.NewScanner(bytes.NewReader(f.body))
		for sc.Scan() {
			var m map[string]any
			require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
			lines = append(lines, m)
		}
		require.Len(t, lines, 4)
		assert.Equal(t, events[0].ID, lines[0]["index"].(map[string]any)["_id"])
		assert.Equal(t, "render", lines[1]["type"])
		assert.Equal(t, "rollback", lines[3]["type"])
	})

	t.Run("item errors", func(t *testing.T) {
		t.Parallel()
		f := &fakeBulk{status: 200, reply: `{"errors":true,"items":[
			{"index":{"status":201}},
			{"index":{"status":400,"error":{"type":"mapper_parsing_exception","reason":"bad payload"}}}
		]}`}
		err := opensearch.NewEventWriter(f, "events").WriteBatch(context.Background(), events)
		require.ErrorIs(t, err, opensearch.ErrBulkFailed)
		assert.Contains(t, err.Error(), "1 of 2")
		assert.Contains(t, err.Error(), "mapper_parsing_exception")
	})

	t.Run("http error", func(t *testing.T) {
		t.Parallel()
		f := &fakeBulk{status: 503, reply: `{}`}
		err := opensearch.NewEventWriter(f, "events").WriteBatch(context.Background(), events)
		require.ErrorIs(t, err, opensearch.ErrBulkFailed)
	})

	t.Run("empty batch", func(t *testing.T) {
		t.Parallel()
		f := &fakeBulk{}
		require.NoError(t, opensearch.NewEventWriter(f, "events").WriteBatch(context.Background(), nil))
		assert.Nil(t, f.body)
	})
}

func TestNewRequiresAddresses(t *testing.T) {
	t.Parallel()
	_, err := opensearch.New(context.Background(), opensearch.Config{})
	require.ErrorIs(t, err, opensearch.ErrNoAddresses)
}

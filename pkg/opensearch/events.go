package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/dmitrymomot/rollout/pkg/metrics"
)

// BulkDoer executes a bulk request. *opensearch.Client satisfies it through
// ClientBulk.
type BulkDoer interface {
	Bulk(ctx context.Context, index string, body io.Reader) (*opensearchapi.Response, error)
}

type clientBulk struct {
	client *opensearch.Client
}

// ClientBulk adapts a client to BulkDoer.
func ClientBulk(client *opensearch.Client) BulkDoer {
	return clientBulk{client: client}
}

func (c clientBulk) Bulk(ctx context.Context, index string, body io.Reader) (*opensearchapi.Response, error) {
	return c.client.Bulk(body,
		c.client.Bulk.WithContext(ctx),
		c.client.Bulk.WithIndex(index),
	)
}

// EventWriter indexes metrics events in bulk. It implements
// metrics.BatchWriter and is meant to sit behind metrics.AsyncSink.
type EventWriter struct {
	bulk  BulkDoer
	index string
}

func NewEventWriter(bulk BulkDoer, index string) *EventWriter {
	if index == "" {
		index = "flagd-events"
	}
	return &EventWriter{bulk: bulk, index: index}
}

type bulkAction struct {
	Index struct {
		ID string `json:"_id,omitempty"`
	} `json:"index"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

func (w *EventWriter) WriteBatch(ctx context.Context, events []metrics.Event) error {
	if len(events) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range events {
		var action bulkAction
		action.Index.ID = e.ID
		if err := enc.Encode(action); err != nil {
			return errors.Join(ErrBulkFailed, err)
		}
		if err := enc.Encode(e); err != nil {
			return errors.Join(ErrBulkFailed, err)
		}
	}

	res, err := w.bulk.Bulk(ctx, w.index, &buf)
	if err != nil {
		return errors.Join(ErrBulkFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.Join(ErrBulkFailed, fmt.Errorf("status %s", res.Status()))
	}

	var out bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return errors.Join(ErrBulkFailed, err)
	}
	if !out.Errors {
		return nil
	}

	failed := 0
	var first string
	for _, item := range out.Items {
		for _, r := range item {
			if r.Error != nil {
				failed++
				if first == "" {
					first = r.Error.Type + ": " + r.Error.Reason
				}
			}
		}
	}
	return errors.Join(ErrBulkFailed, fmt.Errorf("%d of %d events rejected, first: %s", failed, len(events), first))
}

// Package opensearch builds an OpenSearch client from Config and indexes
// rollout metrics events with the bulk API.
//
// EventWriter implements metrics.BatchWriter, so the usual wiring puts it
// behind an asynchronous sink:
//
//	client, err := opensearch.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	sink := metrics.NewAsyncSink(
//	    opensearch.NewEventWriter(opensearch.ClientBulk(client), cfg.EventsIndex),
//	    metrics.AsyncOptions{BatchSize: 200},
//	)
//	defer sink.Close(ctx)
//
// Healthcheck returns a probe for the /readyz endpoint.
package opensearch

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"maps"

	"github.com/dmitrymomot/rollout/pkg/feature"
	"github.com/dmitrymomot/rollout/pkg/logger"
	"github.com/dmitrymomot/rollout/pkg/store"
)

// schedulePersist asks the writer goroutine to save the overrides. Requests
// made while a write is pending collapse into one.
func (e *Engine) schedulePersist() {
	select {
	case e.persistCh <- struct{}{}:
	default:
	}
}

func (e *Engine) persistLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.persistCh:
			e.persist()
		case <-e.done:
			select {
			case <-e.persistCh:
				e.persist()
			default:
			}
			return
		}
	}
}

// persist writes the current overrides, or deletes the object when there
// are none. Failures are logged and counted; memory stays as it is.
func (e *Engine) persist() {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	e.mu.Lock()
	local := maps.Clone(e.layers[feature.SourceLocal])
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), e.writeTimeout)
	defer cancel()

	var err error
	if len(local) == 0 {
		if err = e.store.Delete(ctx, e.localKey); errors.Is(err, store.ErrNotFound) {
			err = nil
		}
	} else {
		var raw []byte
		if raw, err = json.Marshal(local); err == nil {
			err = e.store.Set(ctx, e.localKey, raw)
		}
	}

	if err != nil {
		e.persistFailures.Add(1)
		e.log.WarnContext(ctx, "flag overrides kept in memory only",
			logger.Error(errors.Join(ErrPersistenceWrite, err)),
		)
	}
}

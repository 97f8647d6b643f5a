package rollback

import "sync/atomic"

const (
	slotEmpty uint32 = iota
	slotOK
	slotError
)

// window is a fixed ring of the latest outcomes. Writers claim a slot with
// the cursor, swap the value in and adjust the error sum by the difference,
// so no lock is needed and no increment is lost.
type window struct {
	slots  []atomic.Uint32
	cursor atomic.Uint64
	errors atomic.Int64
}

func newWindow(size int) *window {
	return &window{slots: make([]atomic.Uint32, size)}
}

func (w *window) add(isErr bool) {
	v := slotOK
	if isErr {
		v = slotError
	}
	i := (w.cursor.Add(1) - 1) % uint64(len(w.slots))
	if old := w.slots[i].Swap(v); old == slotError {
		w.errors.Add(-1)
	}
	if isErr {
		w.errors.Add(1)
	}
}

// stats returns the samples held and the errors among them.
func (w *window) stats() (samples, errs int64) {
	n := w.cursor.Load()
	samples = int64(min(n, uint64(len(w.slots))))
	errs = max(0, min(w.errors.Load(), samples))
	return samples, errs
}

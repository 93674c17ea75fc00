package store

import (
	"time"

	"github.com/jholhewres/goquartz/internal/trigger"
)

// TriggerWrapper pairs a Trigger with the store-private state the engine
// needs to track alongside it.
type TriggerWrapper struct {
	Trigger       trigger.Trigger
	State         TriggerState
	FireInstanceID string
}

func (w *TriggerWrapper) key() trigger.TriggerKey { return w.Trigger.Key() }

// nextFireTime reports the wrapper's current next fire time, or a zero
// value/false if none is scheduled.
func (w *TriggerWrapper) nextFireTime() (time.Time, bool) {
	return w.Trigger.NextFireTime()
}

// timeIndex is the time-ordered index over WAITING triggers, sorted by
// (nextFireTime asc, priority desc, key asc). Only triggers with a
// non-null nextFireTime ever appear here.
type timeIndex struct {
	entries []*TriggerWrapper
}

func less(a, b *TriggerWrapper) bool {
	at, _ := a.nextFireTime()
	bt, _ := b.nextFireTime()
	if !at.Equal(bt) {
		return at.Before(bt)
	}
	if a.Trigger.Priority() != b.Trigger.Priority() {
		return a.Trigger.Priority() > b.Trigger.Priority()
	}
	ak, bk := a.key(), b.key()
	if ak.Group != bk.Group {
		return ak.Group < bk.Group
	}
	return ak.Name < bk.Name
}

func (idx *timeIndex) insert(w *TriggerWrapper) {
	i := idx.searchInsertPos(w)
	idx.entries = append(idx.entries, nil)
	copy(idx.entries[i+1:], idx.entries[i:])
	idx.entries[i] = w
}

func (idx *timeIndex) searchInsertPos(w *TriggerWrapper) int {
	lo, hi := 0, len(idx.entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if less(idx.entries[mid], w) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func (idx *timeIndex) remove(key trigger.TriggerKey) {
	for i, w := range idx.entries {
		if w.key() == key {
			idx.entries = append(idx.entries[:i], idx.entries[i+1:]...)
			return
		}
	}
}

// peekFirstEligible returns the earliest entry whose nextFireTime is <=
// noLaterThan and whose key is not in skip, without removing it. Entries
// are sorted by fire time, so the first non-skipped match is returned.
func (idx *timeIndex) peekFirstEligible(noLaterThan time.Time, skip map[trigger.TriggerKey]struct{}) *TriggerWrapper {
	for _, w := range idx.entries {
		ft, ok := w.nextFireTime()
		if !ok || ft.After(noLaterThan) {
			break
		}
		if _, skipped := skip[w.key()]; skipped {
			continue
		}
		return w
	}
	return nil
}

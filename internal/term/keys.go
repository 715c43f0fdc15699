package term

import (
	"sort"
	"time"

	"github.com/kapitanov/chip8interp/internal/vm"
)

// keyTracker turns a stream of press events into press and release edges.
type keyTracker struct {
	hold     time.Duration
	lastSeen map[vm.Key]time.Time
}

func newKeyTracker(hold time.Duration) *keyTracker {
	return &keyTracker{
		hold:     hold,
		lastSeen: make(map[vm.Key]time.Time),
	}
}

// press records a press of key and reports whether it is a new press rather
// than an auto-repeat of a held key.
func (k *keyTracker) press(key vm.Key, now time.Time) bool {
	_, held := k.lastSeen[key]
	k.lastSeen[key] = now
	return !held
}

// expire releases the keys not seen for the hold duration, in key order.
func (k *keyTracker) expire(now time.Time) []vm.Key {
	var released []vm.Key
	for key, seen := range k.lastSeen {
		if now.Sub(seen) >= k.hold {
			released = append(released, key)
		}
	}

	sort.Slice(released, func(i, j int) bool { return released[i] < released[j] })
	for _, key := range released {
		delete(k.lastSeen, key)
	}
	return released
}

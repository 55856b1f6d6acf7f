package keyring

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/kailas-cloud/campus-assistant/internal/metrics"
)

// Sources lists where credentials come from, in load order.
type Sources struct {
	Primary   string   // single primary slot
	EnvPrefix string   // indexed slots: <prefix>1, <prefix>2, ...
	Environ   []string // KEY=VALUE pairs scanned for indexed slots; defaults to os.Environ()
	List      string   // comma separated
}

// Ring is an ordered, de-duplicated credential pool with a shared active pointer.
// The pointer is advanced with compare-and-swap so it always stays in [0, len).
type Ring struct {
	keys   []string
	active atomic.Uint32
}

// New builds a ring from keys in order, dropping blanks and duplicates.
func New(keys ...string) *Ring {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return &Ring{keys: out}
}

// Load builds a ring from the primary slot, then indexed env slots, then the comma list.
func Load(src Sources) *Ring {
	keys := []string{src.Primary}

	if src.EnvPrefix != "" {
		environ := src.Environ
		if environ == nil {
			environ = os.Environ()
		}
		keys = append(keys, indexedSlots(environ, src.EnvPrefix)...)
	}

	if src.List != "" {
		keys = append(keys, strings.Split(src.List, ",")...)
	}

	return New(keys...)
}

// indexedSlots returns values of <prefix>N variables ordered by N.
// Non-numeric suffixes sort after numeric ones, by name.
func indexedSlots(environ []string, prefix string) []string {
	type slot struct {
		name  string
		num   int
		isNum bool
		value string
	}

	var slots []slot
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" || !strings.HasPrefix(name, prefix) {
			continue
		}
		suffix := strings.TrimPrefix(name, prefix)
		n, err := strconv.Atoi(suffix)
		slots = append(slots, slot{name: name, num: n, isNum: err == nil, value: value})
	}

	sort.SliceStable(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.isNum != b.isNum {
			return a.isNum
		}
		if a.isNum && a.num != b.num {
			return a.num < b.num
		}
		return a.name < b.name
	})

	values := make([]string, len(slots))
	for i, s := range slots {
		values[i] = s.value
	}
	return values
}

// Len returns the pool size.
func (r *Ring) Len() int { return len(r.keys) }

// Active returns the current credential and false when the pool is empty.
func (r *Ring) Active() (string, bool) {
	if len(r.keys) == 0 {
		return "", false
	}
	return r.keys[r.index()], true
}

// ActiveIndex returns the position of the active credential.
func (r *Ring) ActiveIndex() int {
	if len(r.keys) == 0 {
		return 0
	}
	return r.index()
}

func (r *Ring) index() int {
	return int(r.active.Load()) % len(r.keys)
}

// Rotate advances the pointer circularly. It returns false when the pool has one key or none.
func (r *Ring) Rotate() bool {
	n := uint32(len(r.keys)) //nolint:gosec // pool size is tiny
	if n <= 1 {
		return false
	}
	for {
		cur := r.active.Load()
		if r.active.CompareAndSwap(cur, (cur+1)%n) {
			metrics.KeyRotationsTotal.Inc()
			return true
		}
	}
}

const maskPrefix = 5

// Mask hides all but the first 5 characters of a credential for logging.
// Keys too short to keep most of their characters hidden are masked entirely.
func Mask(key string) string {
	if key == "" {
		return "NONE"
	}
	if len(key) <= 2*maskPrefix {
		return "***"
	}
	return key[:maskPrefix] + "..."
}

package daemon

import "sync"

// Admission tracks the summed scrypt working sets of in-flight derivations
// against a fixed ceiling. A request that would push the sum past the ceiling
// is rejected immediately; there is no queue, since a queued derivation would
// just hold its caller open for an unbounded time.
type Admission struct {
	mu       sync.Mutex
	ceiling  int64
	reserved int64
}

func NewAdmission(ceiling int64) *Admission {
	return &Admission{ceiling: ceiling}
}

// Reserve attempts to claim n bytes of derivation budget. The caller must
// Release the same n when the derivation finishes, success or not.
func (a *Admission) Reserve(n int64) bool {
	if a == nil || a.ceiling <= 0 {
		return true
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.reserved+n > a.ceiling {
		return false
	}
	a.reserved += n
	return true
}

func (a *Admission) Release(n int64) {
	if a == nil || a.ceiling <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reserved -= n
	if a.reserved < 0 {
		a.reserved = 0
	}
}

// Reserved reports the currently claimed budget in bytes.
func (a *Admission) Reserved() int64 {
	if a == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reserved
}

// Package policy decides whether an access category is inside its allowed
// time window.  Everything here is pure: no clocks, no I/O.
package policy

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
)

// Decision is the verdict for one (category, instant) pair.
type Decision struct {
	Allowed          bool   `json:"allowed"`
	RequiresOverride bool   `json:"requires_override"`
	Window           string `json:"window,omitempty"`
}

// ExitDecision flags exits after the category's exit deadline.
type ExitDecision struct {
	Late     bool       `json:"late"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

// window is [start, end) in minutes after local midnight.
type window struct {
	start, end int
}

func (w window) contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	return m >= w.start && m < w.end
}

func (w window) String() string {
	return clock(w.start) + "-" + clock(w.end)
}

func hm(h, m int) int { return h*60 + m }

func clock(m int) string {
	const digits = "0123456789"
	h, mm := m/60, m%60
	return string([]byte{digits[h/10], digits[h%10], ':', digits[mm/10], digits[mm%10]})
}

var (
	workerWeekday  = window{hm(7, 20), hm(17, 50)}
	workerSaturday = window{hm(8, 0), hm(13, 0)}
	supplierDaily  = window{hm(7, 20), hm(18, 30)}

	workerWeekdayExit  = hm(18, 30)
	workerSaturdayExit = hm(14, 30)
)

// Evaluate applies the entry window for category at instant, read in the
// instant's own location.
func Evaluate(category types.Category, instant time.Time) Decision {
	switch category {
	case types.CategoryWorker:
		switch instant.Weekday() {
		case time.Sunday:
			return Decision{Allowed: false, RequiresOverride: true}
		case time.Saturday:
			return Decision{Allowed: workerSaturday.contains(instant), Window: workerSaturday.String()}
		default:
			return Decision{Allowed: workerWeekday.contains(instant), Window: workerWeekday.String()}
		}
	case types.CategorySupplier:
		return Decision{Allowed: supplierDaily.contains(instant), Window: supplierDaily.String()}
	case types.CategoryVisitor:
		return Decision{Allowed: true}
	}
	return Decision{}
}

// EvaluateExitWindow flags a worker exit after 18:30 on the entry day
// (Mon-Fri) or after 14:30 (Saturday).  Other categories and Sunday entries
// are never late.  A late exit is reported, never blocked.
func EvaluateExitWindow(category types.Category, entryAt, exitAt time.Time) ExitDecision {
	if category != types.CategoryWorker || entryAt.IsZero() {
		return ExitDecision{}
	}

	var limit int
	switch entryAt.Weekday() {
	case time.Sunday:
		return ExitDecision{}
	case time.Saturday:
		limit = workerSaturdayExit
	default:
		limit = workerWeekdayExit
	}

	y, mo, d := entryAt.Date()
	deadline := time.Date(y, mo, d, limit/60, limit%60, 0, 0, entryAt.Location())
	return ExitDecision{Late: exitAt.After(deadline), Deadline: &deadline}
}

// Engine binds the pure rules to the community's time zone and the shared
// override secret.
type Engine struct {
	loc      *time.Location
	digest   [32]byte
	override bool
}

// NewEngine returns an engine evaluating instants in loc (UTC if nil).  An
// empty overrideCode disables overrides entirely.
func NewEngine(loc *time.Location, overrideCode string) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	e := &Engine{loc: loc}
	if code := strings.TrimSpace(overrideCode); code != "" {
		e.digest = blake3.Sum256([]byte(code))
		e.override = true
	}
	return e
}

func (e *Engine) Location() *time.Location { return e.loc }

func (e *Engine) Evaluate(category types.Category, instant time.Time) Decision {
	return Evaluate(category, instant.In(e.loc))
}

func (e *Engine) EvaluateExitWindow(category types.Category, entryAt, exitAt time.Time) ExitDecision {
	return EvaluateExitWindow(category, entryAt.In(e.loc), exitAt.In(e.loc))
}

// ValidateOverrideCode compares fixed-length digests in constant time so
// neither the length nor a prefix of the secret leaks through timing.
func (e *Engine) ValidateOverrideCode(code string) bool {
	if !e.override {
		return false
	}
	candidate := blake3.Sum256([]byte(strings.TrimSpace(code)))
	return subtle.ConstantTimeCompare(candidate[:], e.digest[:]) == 1
}

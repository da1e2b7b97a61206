// Package resolve applies strategy policy to raw three-way deltas: every
// delta gets its final action and notify classification. Safety is the
// default: a locally modified or untracked file is never overwritten or
// deleted unless a flag explicitly allows it, and every refusal is surfaced
// as a conflict rather than silently dropped.
package resolve

import (
	"github.com/castorvcs/castor/pkg/diff"
	"github.com/castorvcs/castor/pkg/errors"
	"github.com/castorvcs/castor/pkg/logging"
	"github.com/castorvcs/castor/pkg/pathcmp"
	"github.com/castorvcs/castor/pkg/types"
)

// Params configures one resolution pass.
type Params struct {
	Strategy types.Strategy
	Cmp      *pathcmp.Comparer

	// Scope limits which paths may be created, updated, or deleted.
	// Out-of-scope deltas pass through with no action.
	Scope types.PathspecMatcher

	// Ignores classifies untracked entries. Queried once per path, at
	// resolution time.
	Ignores types.IgnoreService

	// Notify receives conflict/dirty/untracked/ignored notifications in
	// path order. Kinds handled by the executor (updated, removed) are not
	// reported here.
	Notify     types.NotifyFunc
	NotifyMask types.NotifyKind
}

// Outcome is the resolver output.
type Outcome struct {
	Deltas    []types.Delta
	Conflicts int
}

// Resolve classifies every delta and reports pre-execution notifications.
// It returns a CANCELLED error carrying the caller's code when a notify
// callback aborts.
func Resolve(res *diff.Result, p Params) (*Outcome, error) {
	log := logging.GetLogger("resolve")

	deltas := res.Deltas
	for i := range deltas {
		classify(&deltas[i], p)
	}
	adjustBlockedCreates(res, deltas, p)

	out := &Outcome{Deltas: deltas}
	for i := range deltas {
		d := &deltas[i]
		if d.Action == types.ActionConflict {
			out.Conflicts++
		}
		if d.Notify == types.NotifyNone || d.Notify&executorKinds != 0 {
			continue
		}
		if err := fire(d, p); err != nil {
			return nil, err
		}
	}

	log.Debug().
		Int("deltas", len(deltas)).
		Int("conflicts", out.Conflicts).
		Str("strategy", p.Strategy.String()).
		Msg("deltas resolved")
	return out, nil
}

// executorKinds are reported by the executor as plan items run, not here.
const executorKinds = types.NotifyUpdated | types.NotifyRemoved

func fire(d *types.Delta, p Params) error {
	if p.Notify == nil || p.NotifyMask&d.Notify == 0 {
		return nil
	}
	if r := p.Notify(d.Notify, d.Path, d.Baseline, d.Target, d.Workdir); r.Cancelled() {
		return errors.NewCancelled(r.Code())
	}
	return nil
}

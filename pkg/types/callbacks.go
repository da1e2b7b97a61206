package types

// NotifyResult is the outcome of a notify callback: continue, or cancel the
// whole checkout with a caller-chosen code. The code travels through the
// engine untouched and is returned verbatim so callers can tell "cancelled
// with code X" apart from internal failures.
type NotifyResult struct {
	code int
}

// Continue keeps the checkout going.
func Continue() NotifyResult { return NotifyResult{} }

// Cancel aborts the checkout with the given nonzero code. A zero code is
// normalized to 1 so that cancellation is never mistaken for success.
func Cancel(code int) NotifyResult {
	if code == 0 {
		code = 1
	}
	return NotifyResult{code: code}
}

// Cancelled reports whether the result aborts the operation.
func (r NotifyResult) Cancelled() bool { return r.code != 0 }

// Code returns the caller-supplied cancellation code (zero when continuing).
func (r NotifyResult) Code() int { return r.code }

// NotifyFunc receives per-path notifications filtered by the caller's
// NotifyKind mask. It runs synchronously on the checkout goroutine; a
// cancelling result unwinds immediately without executing further plan
// items.
type NotifyFunc func(kind NotifyKind, path string, baseline, target, workdir *Entry) NotifyResult

// ProgressFunc reports cumulative execution progress. It is first invoked
// with an empty path before the first plan item, then once per completed
// item.
type ProgressFunc func(path string, completed, total int)

// PerfData accumulates filesystem call counters for one checkout.
type PerfData struct {
	Stats  int
	Mkdirs int
	Chmods int
}

// PerfFunc receives the final performance counters after execution.
type PerfFunc func(PerfData)

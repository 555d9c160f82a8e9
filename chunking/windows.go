package chunking

import "iter"

// Window is a half-open token range [Start, End).
type Window struct {
	Start int
	End   int
}

// Len returns the number of tokens in the window.
func (w Window) Len() int {
	return w.End - w.Start
}

// Windows yields the token windows over a stream of total tokens. Consecutive
// windows start size-overlap tokens apart; the last one may be shorter than
// size. No windows are produced for an empty stream.
// Callers must ensure 0 <= overlap < size.
func Windows(total, size, overlap int) iter.Seq[Window] {
	return func(yield func(Window) bool) {
		if total <= 0 {
			return
		}
		step := size - overlap
		for start := 0; ; start += step {
			end := min(start+size, total)
			if !yield(Window{Start: start, End: end}) {
				return
			}
			if end >= total {
				return
			}
		}
	}
}

// WindowCount returns the number of windows Windows yields.
func WindowCount(total, size, overlap int) int {
	switch {
	case total <= 0:
		return 0
	case total <= size:
		return 1
	}
	step := size - overlap
	return (total - overlap + step - 1) / step
}

package payment

// Result is the outcome of processing one item of a batch: either a value or a failure.
type Result[S, F any] struct {
	value   S
	failure F
	ok      bool
}

func Ok[S, F any](value S) Result[S, F] {
	return Result[S, F]{value: value, ok: true}
}

func Fail[S, F any](failure F) Result[S, F] {
	return Result[S, F]{failure: failure}
}

func (r Result[S, F]) IsOk() bool {
	return r.ok
}

func (r Result[S, F]) Value() S {
	return r.value
}

func (r Result[S, F]) Failure() F {
	return r.failure
}

// Partition folds results into successes and failures, preserving order.
func Partition[S, F any](results []Result[S, F]) ([]S, []F) {
	successes := make([]S, 0, len(results))
	failures := make([]F, 0)
	for _, r := range results {
		if r.ok {
			successes = append(successes, r.value)
		} else {
			failures = append(failures, r.failure)
		}
	}
	return successes, failures
}

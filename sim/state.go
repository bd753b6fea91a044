package sim

import "encoding/json"

// KnownSet is the set of values a process has observed. It only grows.
// Membership uses the equality policy (see Epsilon). Sets are persistent:
// With returns a new set and never modifies the receiver, so a round result
// can hand out its sets without copying.
type KnownSet[V Value[V]] struct {
	values []V
}

// NewKnownSet returns a set holding the distinct values given.
func NewKnownSet[V Value[V]](values ...V) KnownSet[V] {
	return KnownSet[V]{}.With(values...)
}

// Contains reports membership under the equality policy.
func (k KnownSet[V]) Contains(v V) bool {
	for _, x := range k.values {
		if Equal(x, v) {
			return true
		}
	}
	return false
}

// With returns a set containing k's values plus any new values in vs,
// preserving first-seen order.
func (k KnownSet[V]) With(vs ...V) KnownSet[V] {
	next := make([]V, len(k.values), len(k.values)+len(vs))
	copy(next, k.values)
	out := KnownSet[V]{values: next}
	for _, v := range vs {
		if !out.Contains(v) {
			out.values = append(out.values, v)
		}
	}
	return out
}

// Len returns the number of distinct values.
func (k KnownSet[V]) Len() int { return len(k.values) }

// Values returns a copy of the members in first-seen order.
func (k KnownSet[V]) Values() []V {
	out := make([]V, len(k.values))
	copy(out, k.values)
	return out
}

// SubsetOf reports whether every member of k is in other.
func (k KnownSet[V]) SubsetOf(other KnownSet[V]) bool {
	for _, v := range k.values {
		if !other.Contains(v) {
			return false
		}
	}
	return true
}

// Smallest returns the member with the smallest coordinate sum, ties broken
// lexicographically. ok is false for an empty set.
func (k KnownSet[V]) Smallest() (v V, ok bool) {
	if len(k.values) == 0 {
		return v, false
	}
	best := k.values[0]
	for _, x := range k.values[1:] {
		if lessBySumThenLex(x, best) {
			best = x
		}
	}
	return best, true
}

func (k KnownSet[V]) MarshalJSON() ([]byte, error) {
	if k.values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(k.values)
}

// State is the cross-round state threaded explicitly through round calls.
type State[V Value[V]] struct {
	// Original holds each process's initial value.
	Original []V `json:"original"`
	// Known holds each process's KnownSet.
	Known []KnownSet[V] `json:"knownValueSets"`
}

// NewState seeds state from initial values: each KnownSet holds its own value.
func NewState[V Value[V]](initial []V) State[V] {
	st := State[V]{
		Original: append([]V(nil), initial...),
		Known:    make([]KnownSet[V], len(initial)),
	}
	for i, v := range initial {
		st.Known[i] = NewKnownSet(v)
	}
	return st
}

// withKnown returns a copy of st whose known sets are replaced.
func (st State[V]) withKnown(known []KnownSet[V]) State[V] {
	return State[V]{Original: st.Original, Known: known}
}

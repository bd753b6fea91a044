package sim

// Inbound is a delivered message as seen by its receiver.
type Inbound[V Value[V]] struct {
	From  int
	Value V
}

// updateInput carries everything an update rule may read for one process.
type updateInput[V Value[V]] struct {
	self     int
	own      V
	original V
	// received is sorted by sender index.
	received []Inbound[V]
	// known already includes this round's delivered values.
	known   KnownSet[V]
	spec    AlgorithmSpec
	meeting V
	final   bool
}

// updateFunc computes a process's next value. Rules are pure.
type updateFunc[V Value[V]] func(in *updateInput[V]) V

// updateRule resolves the rule for kind k. Called once per round, not per process.
func updateRule[V Value[V]](k Kind) updateFunc[V] {
	switch k {
	case KindAMP:
		return updateAMP[V]
	case KindRecursiveAMP:
		return updateRecursiveAMP[V]
	case KindFV:
		return updateFV[V]
	case KindMin:
		return updateMin[V]
	case KindLeader:
		return updateLeader[V]
	case KindCourteous, KindCourteousCorrelated:
		return updateCourteous[V]
	case KindSelfish:
		return updateSelfish[V]
	case KindCyclic:
		return updateCyclic[V]
	case KindBiased0:
		return updateBiased0[V]
	default:
		panic("updateRule: unhandled kind " + k.String())
	}
}

// updateAMP jumps to the meeting point when any received value differs.
func updateAMP[V Value[V]](in *updateInput[V]) V {
	for _, m := range in.received {
		if !Equal(m.Value, in.own) {
			return in.meeting
		}
	}
	return in.own
}

// updateRecursiveAMP interpolates by alpha inside the coordinate-wise hull of
// {own} ∪ this round's received values.
func updateRecursiveAMP[V Value[V]](in *updateInput[V]) V {
	spread := false
	for _, m := range in.received {
		if !Equal(m.Value, in.own) {
			spread = true
			break
		}
	}
	if !spread {
		return in.own
	}
	dims := in.own.Dim()
	c := make([]float64, dims)
	for d := 0; d < dims; d++ {
		lo, hi := in.own.Coord(d), in.own.Coord(d)
		for _, m := range in.received {
			x := m.Value.Coord(d)
			if x < lo {
				lo = x
			}
			if x > hi {
				hi = x
			}
		}
		c[d] = lo + in.spec.Alpha*(hi-lo)
	}
	return in.own.FromCoords(c)
}

// updateFV adopts the differing value from the lowest-indexed sender.
func updateFV[V Value[V]](in *updateInput[V]) V {
	for _, m := range in.received {
		if !Equal(m.Value, in.own) {
			return m.Value
		}
	}
	return in.own
}

// updateMin holds its value until the final round, then decides min(known).
func updateMin[V Value[V]](in *updateInput[V]) V {
	if !in.final {
		return in.own
	}
	if v, ok := in.known.Smallest(); ok {
		return v
	}
	return in.own
}

// updateLeader follows the leader when heard, otherwise reverts to the original value.
func updateLeader[V Value[V]](in *updateInput[V]) V {
	if in.self == in.spec.Leader {
		return in.own
	}
	for _, m := range in.received {
		if m.From == in.spec.Leader {
			return m.Value
		}
	}
	return in.original
}

// updateCourteous takes a strict majority per coordinate; ties flip own.
func updateCourteous[V Value[V]](in *updateInput[V]) V {
	return majority(in, true)
}

// updateSelfish keeps own unless both other processes were heard.
func updateSelfish[V Value[V]](in *updateInput[V]) V {
	switch len(in.received) {
	case 2:
		return majority(in, false)
	default:
		return in.own
	}
}

// updateCyclic also adopts a lone value from its predecessor in 0→1→2→0.
func updateCyclic[V Value[V]](in *updateInput[V]) V {
	switch len(in.received) {
	case 2:
		return majority(in, false)
	case 1:
		if in.received[0].From == (in.self+2)%3 {
			return in.received[0].Value
		}
		return in.own
	default:
		return in.own
	}
}

// updateBiased0 also moves each coordinate to 0 when a lone message leaves a 0 in view.
func updateBiased0[V Value[V]](in *updateInput[V]) V {
	switch len(in.received) {
	case 2:
		return majority(in, false)
	case 1:
		other := in.received[0].Value
		c := make([]float64, in.own.Dim())
		for d := range c {
			if isZeroBit(in.own.Coord(d)) || isZeroBit(other.Coord(d)) {
				c[d] = 0
			} else {
				c[d] = in.own.Coord(d)
			}
		}
		return in.own.FromCoords(c)
	default:
		return in.own
	}
}

// majority votes per coordinate over {own} ∪ received, reading coordinates as
// bits (> 0.5 is a one). On an exact tie, flipOnTie yields 1 - own, otherwise own.
func majority[V Value[V]](in *updateInput[V], flipOnTie bool) V {
	dims := in.own.Dim()
	c := make([]float64, dims)
	total := len(in.received) + 1
	for d := 0; d < dims; d++ {
		ownBit := bit(in.own.Coord(d))
		ones := ownBit
		for _, m := range in.received {
			ones += bit(m.Value.Coord(d))
		}
		zeros := total - ones
		switch {
		case ones > zeros:
			c[d] = 1
		case zeros > ones:
			c[d] = 0
		case flipOnTie:
			c[d] = float64(1 - ownBit)
		default:
			c[d] = float64(ownBit)
		}
	}
	return in.own.FromCoords(c)
}

func bit(x float64) int {
	if x > 0.5 {
		return 1
	}
	return 0
}

func isZeroBit(x float64) bool { return bit(x) == 0 }

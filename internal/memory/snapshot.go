package memory

// Diff records one byte that differs between two memory images.
type Diff struct {
	Address uint16
	Orig    byte
	New     byte
}

// DiffImages compares two memory images byte-wise over the raw array.
func DiffImages(orig, next *Memory) []Diff {
	var out []Diff
	for addr := 0; addr < 0x10000; addr++ {
		o := orig.arr[addr]
		n := next.arr[addr]
		if o != n {
			out = append(out, Diff{Address: uint16(addr), Orig: o, New: n})
		}
	}
	return out
}

// Apply writes the New values of a diff list into m.
func Apply(m *Memory, diffs []Diff) {
	for _, d := range diffs {
		m.arr[d.Address] = d.New
	}
}

// Revert returns the diff list with Orig and New swapped, so applying it
// undoes the original diff.
func Revert(diffs []Diff) []Diff {
	out := make([]Diff, len(diffs))
	for i, d := range diffs {
		out[i] = Diff{Address: d.Address, Orig: d.New, New: d.Orig}
	}
	return out
}

// Snapshots keeps a history of per-step diffs so debug tooling can rewind
// memory a bounded number of steps without storing full images.
type Snapshots struct {
	last  *Memory
	diffs [][]Diff
}

// NewSnapshots starts a history at the given state.
func NewSnapshots(m *Memory) *Snapshots {
	return &Snapshots{last: m.Clone()}
}

// Add records the diff from the last tracked state to current.
func (s *Snapshots) Add(current *Memory) {
	d := DiffImages(s.last, current)
	s.diffs = append(s.diffs, d)
	Apply(s.last, d)
}

// Steps returns how many snapshots have been recorded.
func (s *Snapshots) Steps() int { return len(s.diffs) }

// MemoryAt rewinds the tracked state by stepsBack snapshots and returns the
// reconstructed image.
func (s *Snapshots) MemoryAt(stepsBack int) *Memory {
	if stepsBack > len(s.diffs) {
		stepsBack = len(s.diffs)
	}
	m := s.last.Clone()
	for i := len(s.diffs) - 1; i >= len(s.diffs)-stepsBack; i-- {
		Apply(m, Revert(s.diffs[i]))
	}
	return m
}

// LastDiffs flattens the history and returns the trailing count entries.
func (s *Snapshots) LastDiffs(count int) []Diff {
	var flat []Diff
	for _, d := range s.diffs {
		flat = append(flat, d...)
	}
	if count > len(flat) {
		count = len(flat)
	}
	return flat[len(flat)-count:]
}

package common

// Two lexicographic byte comparators are used by the consensus code. They
// differ only when one slice is a prefix of the other, and picking the wrong
// one changes which candidate wins a tie, so each call site names the one it
// uses.

// CompareMinSize compares a and b byte by byte, as unsigned values, up to the
// length of the shorter slice. Slices that agree on that prefix are equal,
// whatever their lengths.
func CompareMinSize(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Compare is CompareMinSize followed by a length comparison, so that a strict
// prefix sorts before the longer slice. It agrees with bytes.Compare.
func Compare(a, b []byte) int {
	if c := CompareMinSize(a, b); c != 0 {
		return c
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

package sequence

// colorTransitions maps (previous base, color) to the next base in SOLiD di-base encoding.
var colorTransitions = map[byte][4]byte{
	'A': {'A', 'C', 'G', 'T'},
	'C': {'C', 'A', 'T', 'G'},
	'G': {'G', 'T', 'A', 'C'},
	'T': {'T', 'G', 'C', 'A'},
}

// isColorspace reports whether raw looks like a primer base followed by color calls.
func isColorspace(raw []byte) bool {
	if len(raw) < 2 {
		return false
	}

	if _, ok := colorTransitions[upper(raw[0])]; !ok {
		return false
	}

	for _, c := range raw[1:] {
		if (c < '0' || c > '3') && c != '.' {
			return false
		}
	}

	return true
}

// DecodeColorspace converts a primer base plus color calls into base calls.
// The primer itself is not part of the read. A missing call ('.') decodes to N and every
// base after it is N as well, since the chain of transitions is broken.
func DecodeColorspace(raw []byte) []byte {
	if len(raw) < 2 {
		return []byte{}
	}

	out := make([]byte, 0, len(raw)-1)
	prev := upper(raw[0])

	for _, c := range raw[1:] {
		row, ok := colorTransitions[prev]
		if !ok || c == '.' {
			prev = 'N'
			out = append(out, 'N')

			continue
		}

		prev = row[c-'0']
		out = append(out, prev)
	}

	return out
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}

	return b
}

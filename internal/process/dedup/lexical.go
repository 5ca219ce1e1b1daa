package dedup

// Ratio computes the Ratcliff/Obershelp similarity of two strings: twice the
// number of matching characters divided by the total length. 1.0 means the
// normalized strings are identical, 0.0 means nothing matches.
func Ratio(a, b string) float64 {
	ar := []rune(a)
	br := []rune(b)

	total := len(ar) + len(br)
	if total == 0 {
		return 1.0
	}

	return 2.0 * float64(matchingChars(ar, br)) / float64(total)
}

// matchingChars finds the longest common substring, then recurses into the
// unmatched pieces to its left and right.
func matchingChars(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	aStart, bStart, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}

	matched := size
	matched += matchingChars(a[:aStart], b[:bStart])
	matched += matchingChars(a[aStart+size:], b[bStart+size:])

	return matched
}

func longestCommonSubstring(a, b []rune) (aStart, bStart, size int) {
	// prev[j] holds the match run length ending at a[i-1], b[j-1].
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > size {
					size = curr[j]
					aStart = i - size
					bStart = j - size
				}
			} else {
				curr[j] = 0
			}
		}

		prev, curr = curr, prev
	}

	return aStart, bStart, size
}

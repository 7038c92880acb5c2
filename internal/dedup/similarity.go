package dedup

// similarityRatio computes a character-sequence similarity in [0,1]:
// 2*M / (len(a)+len(b)), where M is the total length of the matching blocks
// found by recursively taking the longest common substring and comparing the
// pieces on either side of it.
func similarityRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}

	// Long descriptions dominate the quadratic match step; the head of the
	// text is what distinguishes postings in practice.
	const maxLen = 1000
	if len(ra) > maxLen {
		ra = ra[:maxLen]
	}
	if len(rb) > maxLen {
		rb = rb[:maxLen]
	}

	m := matchingLen(ra, rb)
	return 2.0 * float64(m) / float64(len(ra)+len(rb))
}

// matchingLen sums matching-block lengths recursively around the longest
// common substring.
func matchingLen(a, b []rune) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingLen(a[:ai], b[:bi])
	total += matchingLen(a[ai+size:], b[bi+size:])
	return total
}

// longestCommonSubstring returns the start offsets and length of the longest
// run of runes common to a and b.
func longestCommonSubstring(a, b []rune) (ai, bi, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}

	// Rolling single-row DP keeps memory linear in len(b).
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > size {
					size = curr[j]
					ai = i - size
					bi = j - size
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return ai, bi, size
}

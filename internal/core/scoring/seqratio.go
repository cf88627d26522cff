package scoring

// sequenceRatio is a longest-matching-blocks similarity over two strings:
// twice the total length of all matching blocks divided by the combined
// length. The lexical thresholds were tuned against this exact shape, so it
// stays a fixed contract.
func sequenceRatio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	matched := matchingBlockTotal([]byte(a), []byte(b))
	return 2.0 * float64(matched) / float64(len(a)+len(b))
}

type matchSpan struct {
	aLo, aHi int
	bLo, bHi int
}

// matchingBlockTotal sums the lengths of the recursively-found longest
// common substrings, processed iteratively to keep deep recursion off the
// stack for long descriptions.
func matchingBlockTotal(a, b []byte) int {
	total := 0
	queue := []matchSpan{{0, len(a), 0, len(b)}}
	for len(queue) > 0 {
		span := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		ai, bi, size := longestMatch(a, b, span)
		if size == 0 {
			continue
		}
		total += size
		queue = append(queue,
			matchSpan{span.aLo, ai, span.bLo, bi},
			matchSpan{ai + size, span.aHi, bi + size, span.bHi},
		)
	}
	return total
}

// longestMatch finds the longest common substring within the given window.
// Among equal-length matches the earliest in a, then earliest in b, wins,
// keeping the ratio deterministic.
func longestMatch(a, b []byte, span matchSpan) (bestA, bestB, bestSize int) {
	bestA, bestB = span.aLo, span.bLo

	// b-index positions per byte value inside the window.
	positions := make(map[byte][]int, span.bHi-span.bLo)
	for j := span.bLo; j < span.bHi; j++ {
		positions[b[j]] = append(positions[b[j]], j)
	}

	// lengths[j] = length of the match ending at a[i-1], b[j-1].
	lengths := make(map[int]int, 8)
	for i := span.aLo; i < span.aHi; i++ {
		next := make(map[int]int, 8)
		for _, j := range positions[a[i]] {
			k := lengths[j-1] + 1
			next[j] = k
			if k > bestSize {
				bestA = i - k + 1
				bestB = j - k + 1
				bestSize = k
			}
		}
		lengths = next
	}
	return bestA, bestB, bestSize
}

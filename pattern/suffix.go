package pattern

// suffixArray returns the suffix array of s, built in linear time with
// SA-IS (Nong, Zhang and Chan, "Two Efficient Algorithms for Linear Time
// Suffix Array Construction").
func suffixArray(s []byte) []int32 {
	n := len(s)
	if n == 0 {
		return []int32{}
	}

	// Shift the alphabet up by one and append a unique smallest sentinel.
	text := make([]int32, n+1)
	for i, b := range s {
		text[i] = int32(b) + 1
	}
	sa := make([]int32, n+1)
	sais(text, sa, 257)

	// sa[0] is the sentinel.
	return sa[1:]
}

// sais fills sa with the suffix array of t. The last symbol of t must be 0
// and occur nowhere else; every symbol is below k.
func sais(t, sa []int32, k int) {
	n := len(t)

	// stype[i] reports whether suffix i is S-type (smaller than suffix i+1).
	stype := make([]bool, n)
	stype[n-1] = true
	for i := n - 2; i >= 0; i-- {
		stype[i] = t[i] < t[i+1] || (t[i] == t[i+1] && stype[i+1])
	}
	isLMS := func(i int) bool {
		return i > 0 && stype[i] && !stype[i-1]
	}

	bkt := make([]int32, k)
	buckets := func(end bool) {
		clear(bkt)
		for _, c := range t {
			bkt[c]++
		}
		var sum int32
		for c, cnt := range bkt {
			sum += cnt
			if end {
				bkt[c] = sum
			} else {
				bkt[c] = sum - cnt
			}
		}
	}
	induce := func() {
		buckets(false)
		for i := range n {
			if j := sa[i] - 1; j >= 0 && !stype[j] {
				sa[bkt[t[j]]] = j
				bkt[t[j]]++
			}
		}
		buckets(true)
		for i := n - 1; i >= 0; i-- {
			if j := sa[i] - 1; j >= 0 && stype[j] {
				bkt[t[j]]--
				sa[bkt[t[j]]] = j
			}
		}
	}

	// Sort the LMS substrings.
	for i := range sa {
		sa[i] = -1
	}
	buckets(true)
	for i := 1; i < n; i++ {
		if isLMS(i) {
			bkt[t[i]]--
			sa[bkt[t[i]]] = int32(i) //nolint: gosec
		}
	}
	induce()

	n1 := 0
	for i := range n {
		if p := sa[i]; p >= 0 && isLMS(int(p)) {
			sa[n1] = p
			n1++
		}
	}

	// Name the LMS substrings; equal substrings share a name. Names are
	// stored at n1 + pos/2, which cannot collide since LMS positions are
	// never adjacent.
	for i := n1; i < n; i++ {
		sa[i] = -1
	}
	names, prev := 0, -1
	for i := range n1 {
		pos := int(sa[i])
		diff := prev < 0
		for d := 0; !diff; d++ {
			if t[pos+d] != t[prev+d] || stype[pos+d] != stype[prev+d] {
				diff = true
			} else if d > 0 && (isLMS(pos+d) || isLMS(prev+d)) {
				break
			}
		}
		if diff {
			names++
			prev = pos
		}
		sa[n1+pos/2] = int32(names - 1) //nolint: gosec
	}
	j := n - 1
	for i := n - 1; i >= n1; i-- {
		if sa[i] >= 0 {
			sa[j] = sa[i]
			j--
		}
	}

	// Sort the reduced string, recursing only when names repeat.
	s1, sa1 := sa[n-n1:], sa[:n1]
	if names < n1 {
		sais(s1, sa1, names)
	} else {
		for i, c := range s1 {
			sa1[c] = int32(i) //nolint: gosec
		}
	}

	// Map reduced ranks back to LMS positions and induce the full order.
	j = 0
	for i := 1; i < n; i++ {
		if isLMS(i) {
			s1[j] = int32(i) //nolint: gosec
			j++
		}
	}
	for i := range n1 {
		sa1[i] = s1[sa1[i]]
	}
	for i := n1; i < n; i++ {
		sa[i] = -1
	}
	buckets(true)
	for i := n1 - 1; i >= 0; i-- {
		p := sa[i]
		sa[i] = -1
		bkt[t[p]]--
		sa[bkt[t[p]]] = p
	}
	induce()
}

// lcpArray returns lcp where lcp[i] is the longest common prefix of the
// suffixes sa[i-1] and sa[i], and lcp[0] is 0 (Kasai et al.).
func lcpArray(s []byte, sa []int32) []int32 {
	n := len(s)
	lcp := make([]int32, n)
	if n == 0 {
		return lcp
	}

	rank := make([]int32, n)
	for i, p := range sa {
		rank[p] = int32(i) //nolint: gosec
	}

	h := 0
	for i := range n {
		if rank[i] == 0 {
			h = 0
			continue
		}
		j := int(sa[rank[i]-1])
		for i+h < n && j+h < n && s[i+h] == s[j+h] {
			h++
		}
		lcp[rank[i]] = int32(h) //nolint: gosec
		if h > 0 {
			h--
		}
	}

	return lcp
}

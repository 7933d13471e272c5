// Package pattern measures how much of a buffer is made of repeated
// substrings, for every candidate length in a range (4..251 by default).
//
// The analyzer builds one suffix array and its LCP array per buffer and
// derives the count for every length from them, so the cost is
// O(n log n) for the index plus O(n + lengths) for the counts, independent
// of how many lengths are scanned.
//
// For a length L the reported count is the number of adjacent suffix-array
// pairs whose longest common prefix is at least L. Equivalently, it is the
// number of L-byte windows that repeat a window seen elsewhere in the
// buffer: a substring occurring m times contributes m-1.
package pattern

// Package detect classifies byte buffers into coarse content categories.
//
// Classification first matches the buffer prefix against a table of magic
// signatures. Without a match it falls back to statistics: an exact-period
// test, byte entropy, the printable ratio, and a few textual markers that
// separate markup and source code from prose. Detection never fails; input
// nothing recognizes is reported as Unknown with low confidence.
package detect

import (
	"bytes"
	"math"
	"unicode/utf8"

	"github.com/arloliu/patpack/format"
	"github.com/arloliu/patpack/internal/options"
)

// FileTypeInfo is the result of a detection.
type FileTypeInfo struct {
	// Category is the detected content category.
	Category format.Category
	// Confidence is in [0,1]. Signature matches score higher than heuristics.
	Confidence float64
	// Signature names the matched magic signature, empty when none matched.
	Signature string
	// Entropy is the Shannon entropy in bits per byte.
	Entropy float64
	// PrintableRatio is the fraction of bytes that are printable text.
	PrintableRatio float64
	// Period is the smallest exact period of the buffer, 0 when the buffer
	// is not periodic.
	Period int
}

// Thresholds of the statistical fallback.
const (
	DefaultMinRepeats = 4
	DefaultMaxPeriod  = 64 * 1024

	textPrintableRatio   = 0.95
	binaryPrintableRatio = 0.70
	randomEntropy        = 7.5

	signatureConfidence = 0.95
	periodicConfidence  = 0.90
	unknownConfidence   = 0.20
)

// Detector classifies buffers. The zero value is not usable; create one with
// New.
type Detector struct {
	minRepeats int
	maxPeriod  int
}

// Option configures a Detector.
type Option = options.Option[*Detector]

// WithMinRepeats sets how many whole copies of a period are needed before a
// buffer is reported as periodic.
func WithMinRepeats(n int) Option {
	return options.NoError(func(d *Detector) {
		d.minRepeats = max(2, n)
	})
}

// WithMaxPeriod bounds the period length reported as periodic.
func WithMaxPeriod(n int) Option {
	return options.NoError(func(d *Detector) {
		d.maxPeriod = max(1, n)
	})
}

// New creates a Detector.
func New(opts ...Option) *Detector {
	d := &Detector{minRepeats: DefaultMinRepeats, maxPeriod: DefaultMaxPeriod}
	_ = options.Apply(d, opts...)

	return d
}

var defaultDetector = New()

// Detect classifies data with default settings.
func Detect(data []byte) FileTypeInfo {
	return defaultDetector.Detect(data)
}

// Detect classifies data. data may be a prefix or sample of a larger input.
func (d *Detector) Detect(data []byte) FileTypeInfo {
	if len(data) == 0 {
		return FileTypeInfo{Category: format.CategoryUnknown}
	}

	info := FileTypeInfo{
		Entropy:        Entropy(data),
		PrintableRatio: PrintableRatio(data),
	}

	if sig, ok := matchSignature(data); ok {
		info.Category = sig.category
		info.Signature = sig.name
		info.Confidence = signatureConfidence

		return info
	}

	if p := SmallestPeriod(data); p > 0 && p <= d.maxPeriod && len(data)/p >= d.minRepeats {
		info.Category = format.CategoryPeriodic
		info.Period = p
		info.Confidence = periodicConfidence

		return info
	}

	switch {
	case info.PrintableRatio >= textPrintableRatio:
		info.Category, info.Confidence = classifyText(data, info.PrintableRatio)
	case info.Entropy >= randomEntropy:
		info.Category = format.CategoryBinary
		info.Confidence = 0.5 + 0.5*min(1, (info.Entropy-randomEntropy)/(8-randomEntropy))
	case info.PrintableRatio < binaryPrintableRatio:
		info.Category = format.CategoryBinary
		info.Confidence = 0.5 + 0.5*(binaryPrintableRatio-info.PrintableRatio)/binaryPrintableRatio
	default:
		info.Category = format.CategoryUnknown
		info.Confidence = unknownConfidence
	}

	return info
}

// classifyText separates markup and source code from prose.
func classifyText(data []byte, printable float64) (format.Category, float64) {
	base := 0.5 + 0.3*(printable-textPrintableRatio)/(1-textPrintableRatio)

	markup := markupScore(data)
	code := codeScore(data)

	switch {
	case markup >= 0.02 && markup >= code:
		return format.CategoryMarkup, min(1, base+0.1)
	case code >= 0.01:
		return format.CategorySourceCode, min(1, base+0.1)
	default:
		return format.CategoryText, base
	}
}

// markupScore is the density of structural markup characters.
func markupScore(data []byte) float64 {
	var n int
	for _, b := range data {
		switch b {
		case '<', '>', '{', '}', '[', ']', '"', '=':
			n++
		}
	}

	return float64(n) / float64(len(data))
}

var codeTokens = [][]byte{
	[]byte("func "), []byte("def "), []byte("class "), []byte("return "), []byte("import "),
	[]byte("#include"), []byte("const "), []byte("var "), []byte("let "), []byte("fn "),
	[]byte("if ("), []byte("for ("), []byte(");\n"), []byte("{\n"), []byte("}\n"), []byte("//"),
}

// codeScore is the number of source code tokens per line.
func codeScore(data []byte) float64 {
	lines := bytes.Count(data, []byte{'\n'}) + 1
	hits := 0
	for _, tok := range codeTokens {
		hits += bytes.Count(data, tok)
	}

	return float64(hits) / float64(lines) / 10
}

// Entropy returns the Shannon entropy of data in bits per byte.
func Entropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	var freq [256]int
	for _, b := range data {
		freq[b]++
	}

	n := float64(len(data))
	h := 0.0
	for _, f := range freq {
		if f == 0 {
			continue
		}
		p := float64(f) / n
		h -= p * math.Log2(p)
	}

	return h
}

// PrintableRatio returns the fraction of data that is printable text. ASCII
// graphic characters, spaces, tabs and line breaks count as printable;
// multi-byte UTF-8 sequences count when they decode cleanly.
func PrintableRatio(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	printable := 0
	for i := 0; i < len(data); {
		b := data[i]
		if b < utf8.RuneSelf {
			if (b >= 0x20 && b < 0x7F) || b == '\n' || b == '\r' || b == '\t' {
				printable++
			}
			i++

			continue
		}

		r, size := utf8.DecodeRune(data[i:])
		if r != utf8.RuneError {
			printable += size
		}
		i += size
	}

	return float64(printable) / float64(len(data))
}

// SmallestPeriod returns the smallest p < len(data) such that data is made of
// len(data)/p exact copies of data[:p], or 0 when there is none.
func SmallestPeriod(data []byte) int {
	n := len(data)
	if n < 2 {
		return 0
	}

	// Knuth-Morris-Pratt failure function.
	fail := make([]int32, n)
	k := int32(0)
	for i := 1; i < n; i++ {
		for k > 0 && data[i] != data[k] {
			k = fail[k-1]
		}
		if data[i] == data[k] {
			k++
		}
		fail[i] = k
	}

	p := n - int(fail[n-1])
	if p < n && n%p == 0 {
		return p
	}

	return 0
}

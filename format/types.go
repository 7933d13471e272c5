package format

import (
	"fmt"
	"strings"
)

type (
	Category     uint8
	Algorithm    uint8
	SamplingMode uint8
	FECType      uint8
)

const (
	CategoryUnknown    Category = 0x0 // CategoryUnknown represents content no heuristic could classify.
	CategoryText       Category = 0x1 // CategoryText represents natural language text / literature.
	CategoryMarkup     Category = 0x2 // CategoryMarkup represents HTML, XML, JSON and similar markup.
	CategorySourceCode Category = 0x3 // CategorySourceCode represents program source code.
	CategoryBinary     Category = 0x4 // CategoryBinary represents non-textual binary content.
	CategoryPeriodic   Category = 0x5 // CategoryPeriodic represents content made of an exactly repeating unit.

	AlgorithmNone         Algorithm = 0x1 // AlgorithmNone stores bytes unchanged.
	AlgorithmHybrid       Algorithm = 0x2 // AlgorithmHybrid represents the RLE+LZ77 hybrid codec.
	AlgorithmPeriodic     Algorithm = 0x3 // AlgorithmPeriodic represents the exact-repeat codec.
	AlgorithmHierarchical Algorithm = 0x4 // AlgorithmHierarchical represents the multi-pass block codec.
	AlgorithmDictionary   Algorithm = 0x5 // AlgorithmDictionary represents the dictionary+Huffman (brotli) codec.
	AlgorithmZstd         Algorithm = 0x6 // AlgorithmZstd represents Zstandard compression.
	AlgorithmLZ4          Algorithm = 0x7 // AlgorithmLZ4 represents LZ4 block compression.
	AlgorithmS2           Algorithm = 0x8 // AlgorithmS2 represents S2 compression.
	AlgorithmSnappy       Algorithm = 0x9 // AlgorithmSnappy represents Snappy compression.

	SamplingFullScan SamplingMode = 0x1 // SamplingFullScan analyzes the whole buffer.
	SamplingStrided  SamplingMode = 0x2 // SamplingStrided analyzes evenly spaced windows.

	FECNone        FECType = 0x0 // FECNone disables forward error correction.
	FECReedSolomon FECType = 0x1 // FECReedSolomon wraps payloads with Reed-Solomon erasure coding.
)

func (c Category) String() string {
	switch c {
	case CategoryText:
		return "Text"
	case CategoryMarkup:
		return "Markup"
	case CategorySourceCode:
		return "SourceCode"
	case CategoryBinary:
		return "Binary"
	case CategoryPeriodic:
		return "Periodic"
	default:
		return "Unknown"
	}
}

// IsTextual reports whether the category holds human-readable text.
func (c Category) IsTextual() bool {
	return c == CategoryText || c == CategoryMarkup || c == CategorySourceCode
}

func (a Algorithm) String() string {
	switch a {
	case AlgorithmNone:
		return "None"
	case AlgorithmHybrid:
		return "Hybrid"
	case AlgorithmPeriodic:
		return "Periodic"
	case AlgorithmHierarchical:
		return "Hierarchical"
	case AlgorithmDictionary:
		return "Dictionary"
	case AlgorithmZstd:
		return "Zstd"
	case AlgorithmLZ4:
		return "LZ4"
	case AlgorithmS2:
		return "S2"
	case AlgorithmSnappy:
		return "Snappy"
	default:
		return "Unknown"
	}
}

// IsValid reports whether a is a known algorithm.
func (a Algorithm) IsValid() bool {
	return a >= AlgorithmNone && a <= AlgorithmSnappy
}

// Algorithms returns every known algorithm in identifier order.
func Algorithms() []Algorithm {
	return []Algorithm{
		AlgorithmNone,
		AlgorithmHybrid,
		AlgorithmPeriodic,
		AlgorithmHierarchical,
		AlgorithmDictionary,
		AlgorithmZstd,
		AlgorithmLZ4,
		AlgorithmS2,
		AlgorithmSnappy,
	}
}

// ParseAlgorithm maps a case-insensitive name to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	for _, a := range Algorithms() {
		if strings.EqualFold(a.String(), name) {
			return a, nil
		}
	}

	return 0, fmt.Errorf("unknown algorithm: %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed

	return nil
}

func (m SamplingMode) String() string {
	switch m {
	case SamplingFullScan:
		return "FullScan"
	case SamplingStrided:
		return "Strided"
	default:
		return "Unknown"
	}
}

func (f FECType) String() string {
	switch f {
	case FECNone:
		return "none"
	case FECReedSolomon:
		return "reed-solomon"
	default:
		return "unknown"
	}
}

// IsValid reports whether f is a known FEC type.
func (f FECType) IsValid() bool {
	return f == FECNone || f == FECReedSolomon
}

// ParseFECType maps a name to a FECType. The empty string means none.
func ParseFECType(name string) (FECType, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return FECNone, nil
	case "reed-solomon", "reedsolomon", "rs":
		return FECReedSolomon, nil
	default:
		return 0, fmt.Errorf("unknown fec type: %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f FECType) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *FECType) UnmarshalText(text []byte) error {
	parsed, err := ParseFECType(string(text))
	if err != nil {
		return err
	}
	*f = parsed

	return nil
}

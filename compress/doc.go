// Package compress provides the codecs that turn analyzed inputs into
// compressed payloads.
//
// # Native codecs
//
// Three codecs implement patpack's own wire formats:
//
//   - HybridCodec: run-length records plus LZ77 back-references inside a
//     65536-byte window. Markers 0xFF (run) and 0xFE (match) are reserved;
//     literal occurrences of either byte are escaped.
//   - PeriodicCodec: inputs made of n identical copies of a fixed-size unit
//     collapse to a 5-byte header plus one unit. With the reference 251-byte
//     unit every stream is exactly 256 bytes.
//   - HierarchicalCodec: the general fallback. Identical blocks become
//     references to earlier blocks, and every remaining block keeps the
//     smallest of raw, hybrid, or hybrid followed by huff0 entropy coding.
//
// # Delegated codecs
//
// DictionaryCodec (Brotli), ZstdCodec, LZ4Codec, S2Codec, SnappyCodec and
// NoOpCodec wrap established libraries behind the same interface so the
// engine can compare them against the native codecs.
//
// # Registry
//
// Codecs are looked up by format.Algorithm through a Registry:
//
//	reg, err := compress.NewDefaultRegistry(compress.DefaultParams())
//	codec, err := reg.Get(format.AlgorithmHybrid)
//	out, err := codec.Compress(data)
//
// Every codec is stateless after construction and safe for concurrent use.
package compress

// Package section defines the fixed-size artifact header that prefixes every
// payload produced by patpack.
//
// An artifact is laid out as:
//
//	┌──────────────────────────────────────────────┐
//	│ Header (24 bytes, fixed)                     │
//	│  - Magic (2) Version (1) Flags (1)           │
//	│  - Algorithm (1) FEC type (1) Reserved (2)   │
//	│  - OriginalSize (8)                          │
//	│  - Checksum (8): xxhash64 of original bytes  │
//	├──────────────────────────────────────────────┤
//	│ Payload                                      │
//	│  - codec stream, or                          │
//	│  - FEC envelope around a codec stream, or    │
//	│  - chunked container                         │
//	└──────────────────────────────────────────────┘
//
// All multi-byte fields are little-endian. The header does not describe the
// payload's own framing; codec streams carry their own magic where they
// need one.
package section

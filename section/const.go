package section

// Artifact header layout, little-endian:
//
//	0-1    magic
//	2      version
//	3      flags
//	4      algorithm
//	5      FEC type
//	6-7    reserved, must be zero
//	8-15   original size
//	16-23  xxhash64 of the original bytes
const (
	HeaderSize = 24

	Magic   uint16 = 0xCA71
	Version uint8  = 1
)

// Flag bits.
const (
	FlagFEC          Flag = 0x01 // payload is wrapped in an FEC envelope
	FlagChunked      Flag = 0x02 // payload is a chunked container
	reservedFlagMask Flag = 0xFC
)

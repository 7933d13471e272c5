package hash

import "github.com/cespare/xxhash/v2"

// Checksum computes the xxHash64 of data. Used for artifact and shard
// integrity checks, not for content addressing.
func Checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// ChecksumString computes the xxHash64 of the given string.
func ChecksumString(data string) uint64 {
	return xxhash.Sum64String(data)
}

// Digest accumulates a checksum over several buffers.
type Digest struct {
	d *xxhash.Digest
}

// NewDigest returns an empty Digest.
func NewDigest() *Digest {
	return &Digest{d: xxhash.New()}
}

// Write adds data to the running checksum.
func (d *Digest) Write(data []byte) {
	_, _ = d.d.Write(data)
}

// Sum64 returns the checksum of everything written so far.
func (d *Digest) Sum64() uint64 {
	return d.d.Sum64()
}

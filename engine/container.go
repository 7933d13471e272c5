package engine

import (
	"context"
	"errors"

	"github.com/arloliu/patpack/chunker"
	"github.com/arloliu/patpack/endian"
	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
	"github.com/arloliu/patpack/internal/codec"
	"github.com/arloliu/patpack/internal/hash"
	"github.com/arloliu/patpack/section"
	"github.com/arloliu/patpack/strategy"
)

// Chunked container payload (after the outer header and FEC unwrap):
//
//	manifestLen(u32) manifest(CBOR) artifact 0 .. artifact n-1
//
// Each artifact is a complete single-input artifact for one unique chunk,
// with its own header and checksum. Manifest entries list the chunks in
// input order and point into the artifact list, so a chunk that occurs
// several times is stored once.

const manifestVersion = 1

type manifest struct {
	Version   int             `cbor:"1,keyasint"`
	Chunks    []manifestChunk `cbor:"2,keyasint"`
	Artifacts []uint64        `cbor:"3,keyasint"`
}

type manifestChunk struct {
	Hash   []byte `cbor:"1,keyasint"`
	Offset uint64 `cbor:"2,keyasint"`
	Length uint64 `cbor:"3,keyasint"`
	Index  int    `cbor:"4,keyasint"`
}

func (e *Engine) chunked(size int) bool {
	return e.chunker != nil && size > e.cfg.Chunking.Threshold
}

// ChunkStats describes one chunked compression.
type ChunkStats = chunker.Stats

func (e *Engine) compressChunked(ctx context.Context, data []byte) ([]byte, error) {
	out, _, err := e.CompressChunked(ctx, data)
	return out, err
}

// CompressChunked builds a chunked container for data regardless of its
// size: it splits data, deduplicates the chunks when enabled and compresses
// each unique chunk on the worker pool.
func (e *Engine) CompressChunked(ctx context.Context, data []byte) ([]byte, ChunkStats, error) {
	if e.chunker == nil {
		return nil, ChunkStats{}, errs.New(errs.KindConfigError, "chunked compress", "chunking is disabled")
	}

	chunks := e.chunker.Split(data)

	m := manifest{Version: manifestVersion, Chunks: make([]manifestChunk, len(chunks))}
	store := chunker.NewStore()
	for i, ch := range chunks {
		idx := i
		if e.cfg.Chunking.Dedup {
			idx, _ = store.Add(ch)
		}
		m.Chunks[i] = manifestChunk{
			Hash:   ch.Hash[:],
			Offset: uint64(ch.Offset),    //nolint: gosec
			Length: uint64(len(ch.Data)), //nolint: gosec
			Index:  idx,
		}
	}
	unique := chunks
	stats := ChunkStats{Chunks: len(chunks), Unique: len(chunks)}
	if e.cfg.Chunking.Dedup {
		unique = store.Unique()
		stats = store.Stats()
	}

	artifacts, err := e.compressChunks(ctx, unique)
	if err != nil {
		return nil, stats, err
	}

	m.Artifacts = make([]uint64, len(artifacts))
	bodyLen := 0
	for i, a := range artifacts {
		m.Artifacts[i] = uint64(len(a))
		bodyLen += len(a)
	}

	encoded, err := codec.Marshal(m)
	if err != nil {
		return nil, stats, err
	}

	payload := make([]byte, 0, 4+len(encoded)+bodyLen)
	payload = endian.GetLittleEndianEngine().AppendUint32(payload, uint32(len(encoded))) //nolint: gosec
	payload = append(payload, encoded...)
	for _, a := range artifacts {
		payload = append(payload, a...)
	}

	e.logger.Debug("chunked input",
		"size", len(data),
		"chunks", stats.Chunks,
		"unique", stats.Unique,
		"duplicate_bytes", stats.DuplicateBytes,
	)

	hdr := section.NewHeader(format.AlgorithmNone, len(data), hash.Checksum(data))
	hdr.WithChunked()

	out, err := e.seal(hdr, payload)

	return out, stats, err
}

// compressChunks analyzes and compresses every chunk on the worker pool. The
// first failure cancels the remaining work.
func (e *Engine) compressChunks(ctx context.Context, chunks []chunker.Chunk) ([][]byte, error) {
	artifacts := make([][]byte, len(chunks))
	err := e.parallel(ctx, len(chunks), true, func(ctx context.Context, i int) error {
		a, err := e.compressChunk(ctx, chunks[i].Data)
		artifacts[i] = a

		return err
	})
	if err != nil {
		return nil, err
	}

	return artifacts, nil
}

// compressChunk produces an unwrapped single artifact for one chunk. FEC is
// applied once to the whole container.
func (e *Engine) compressChunk(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	algo := e.forced
	if !e.hasForced {
		res, err := e.AnalyzeContext(ctx, data)
		if err != nil {
			return nil, err
		}
		algo = res.Strategy.Algorithm
	}

	payload, err := e.encode(data, algo)
	if err != nil {
		if e.hasForced || !errors.Is(err, errs.ErrPatternMismatch) {
			return nil, err
		}
		algo = strategy.FallbackAlgorithm
		if payload, err = e.encode(data, algo); err != nil {
			return nil, err
		}
	}

	hdr := section.NewHeader(algo, len(data), hash.Checksum(data))
	out := make([]byte, 0, section.HeaderSize+len(payload))
	out = hdr.AppendTo(out)

	return append(out, payload...), nil
}

func (e *Engine) decompressChunked(payload []byte, originalSize uint64) ([]byte, error) {
	const op = "chunked decompress"

	if len(payload) < 4 {
		return nil, errs.New(errs.KindTruncated, op, "container is %d bytes", len(payload))
	}
	manifestLen := uint64(endian.GetLittleEndianEngine().Uint32(payload[:4]))
	if manifestLen > uint64(len(payload)-4) {
		return nil, errs.New(errs.KindTruncated, op, "manifest needs %d bytes, have %d", manifestLen, len(payload)-4)
	}

	var m manifest
	if err := codec.Unmarshal(payload[4:4+manifestLen], &m); err != nil {
		return nil, err
	}
	if m.Version != manifestVersion {
		return nil, errs.New(errs.KindInvalidHeader, op, "unsupported manifest version %d", m.Version)
	}

	body := payload[4+manifestLen:]
	artifacts := make([][]byte, len(m.Artifacts))
	pos := uint64(0)
	for i, n := range m.Artifacts {
		if n > uint64(len(body))-pos {
			return nil, errs.New(errs.KindTruncated, op, "artifact %d needs %d bytes, have %d", i, n, uint64(len(body))-pos)
		}
		artifacts[i] = body[pos : pos+n]
		pos += n
	}
	if pos != uint64(len(body)) {
		return nil, errs.New(errs.KindInvalidHeader, op, "%d trailing bytes", uint64(len(body))-pos)
	}

	decoded := make([][]byte, len(artifacts))
	out := make([]byte, 0, min(originalSize, uint64(len(payload))*8))
	for i, ch := range m.Chunks {
		if ch.Index < 0 || ch.Index >= len(artifacts) {
			return nil, errs.New(errs.KindInvalidOffset, op, "chunk %d references artifact %d of %d", i, ch.Index, len(artifacts))
		}
		if ch.Offset != uint64(len(out)) {
			return nil, errs.New(errs.KindInvalidOffset, op, "chunk %d at offset %d, expected %d", i, ch.Offset, len(out))
		}

		if decoded[ch.Index] == nil {
			data, err := e.Decompress(artifacts[ch.Index])
			if err != nil {
				return nil, errs.Wrap(errs.KindOf(err), op, err)
			}
			decoded[ch.Index] = data
		}
		data := decoded[ch.Index]
		if uint64(len(data)) != ch.Length {
			return nil, errs.New(errs.KindCorrupted, op, "chunk %d is %d bytes, manifest records %d", i, len(data), ch.Length)
		}
		if h := chunker.HashChunk(data); string(h[:]) != string(ch.Hash) {
			return nil, errs.New(errs.KindCorrupted, op, "chunk %d hash mismatch", i)
		}
		out = append(out, data...)
	}

	return out, nil
}

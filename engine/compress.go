package engine

import (
	"context"
	"errors"

	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/fec"
	"github.com/arloliu/patpack/format"
	"github.com/arloliu/patpack/internal/hash"
	"github.com/arloliu/patpack/section"
	"github.com/arloliu/patpack/strategy"
)

// Compress picks a strategy for data and returns the artifact together with
// the strategy that produced it. Inputs above the chunk threshold become
// chunked containers and the returned strategy is the whole-input
// recommendation, unless that strategy only applies to the whole input
// (see strategy.WholeInput), in which case data is compressed in one piece.
func (e *Engine) Compress(ctx context.Context, data []byte) ([]byte, strategy.Strategy, error) {
	if e.hasForced {
		st := strategy.Strategy{
			Algorithm:      e.forced,
			Nominal:        e.forced,
			EstimatedRatio: 1,
			Confidence:     1,
			Reason:         "codec set by configuration",
		}
		if e.chunked(len(data)) && !strategy.WholeInput(e.forced) {
			out, err := e.compressChunked(ctx, data)
			return out, st, err
		}
		out, err := e.CompressWith(data, e.forced)

		return out, st, err
	}

	res, err := e.AnalyzeContext(ctx, data)
	if err != nil {
		return nil, strategy.Strategy{}, err
	}
	if e.chunked(len(data)) && !strategy.WholeInput(res.Strategy.Algorithm) {
		out, err := e.compressChunked(ctx, data)
		return out, res.Strategy, err
	}

	out, err := e.CompressStrategy(data, res.Strategy)

	return out, res.Strategy, err
}

// CompressStrategy compresses data whole with the strategy's codec. When that
// codec rejects the input the fallback codec is used instead.
func (e *Engine) CompressStrategy(data []byte, st strategy.Strategy) ([]byte, error) {
	out, err := e.CompressWith(data, st.Algorithm)
	if err == nil || st.Algorithm == strategy.FallbackAlgorithm || !errors.Is(err, errs.ErrPatternMismatch) {
		return out, err
	}

	e.logger.Warn("codec rejected input, using fallback",
		"algorithm", st.Algorithm.String(),
		"fallback", strategy.FallbackAlgorithm.String(),
		"error", err,
	)

	return e.CompressWith(data, strategy.FallbackAlgorithm)
}

// CompressWith compresses data whole with algo and no analysis. The artifact
// is FEC-wrapped when FEC is configured.
func (e *Engine) CompressWith(data []byte, algo format.Algorithm) ([]byte, error) {
	payload, err := e.encode(data, algo)
	if err != nil {
		return nil, err
	}

	hdr := section.NewHeader(algo, len(data), hash.Checksum(data))

	return e.seal(hdr, payload)
}

// encode runs the codec for algo over data.
func (e *Engine) encode(data []byte, algo format.Algorithm) ([]byte, error) {
	c, err := e.registry.Get(algo)
	if err != nil {
		return nil, err
	}

	return c.Compress(data)
}

// seal applies the FEC wrap when configured and prefixes the header.
func (e *Engine) seal(hdr section.Header, payload []byte) ([]byte, error) {
	if e.fec != nil {
		wrapped, err := e.fec.Encode(payload)
		if err != nil {
			return nil, err
		}
		payload = wrapped
		hdr.WithFEC(format.FECReedSolomon)
	}

	out := make([]byte, 0, section.HeaderSize+len(payload))
	out = hdr.AppendTo(out)

	return append(out, payload...), nil
}

// Decompress restores the input of an artifact produced by any Engine with
// the same periodic unit; FEC, chunking and codec choice are read from the
// artifact. The size and checksum recorded in the header are verified.
func (e *Engine) Decompress(artifact []byte) ([]byte, error) {
	const op = "decompress"

	hdr, err := section.ParseHeader(artifact)
	if err != nil {
		return nil, err
	}

	payload := artifact[section.HeaderSize:]
	if hdr.IsFEC() {
		var rep fec.Report
		payload, rep, err = fec.DecodeReport(payload)
		if rep.Damaged > 0 {
			e.logger.Warn("fec envelope damaged",
				"damaged", rep.Damaged,
				"parity", rep.ParityShards,
				"repaired", err == nil,
			)
		}
		if err != nil {
			return nil, err
		}
	}

	var out []byte
	if hdr.IsChunked() {
		out, err = e.decompressChunked(payload, hdr.OriginalSize)
	} else {
		out, err = e.decode(hdr.Algorithm, payload)
	}
	if err != nil {
		return nil, err
	}

	if uint64(len(out)) != hdr.OriginalSize {
		return nil, errs.New(errs.KindCorrupted, op, "decoded %d bytes, header records %d", len(out), hdr.OriginalSize)
	}
	if sum := hash.Checksum(out); sum != hdr.Checksum {
		return nil, errs.New(errs.KindCorrupted, op, "checksum 0x%016X, header records 0x%016X", sum, hdr.Checksum)
	}

	return out, nil
}

func (e *Engine) decode(algo format.Algorithm, payload []byte) ([]byte, error) {
	c, err := e.registry.Get(algo)
	if err != nil {
		return nil, err
	}

	return c.Decompress(payload)
}

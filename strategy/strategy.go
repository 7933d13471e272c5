package strategy

import (
	"fmt"
	"math"

	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
	"github.com/arloliu/patpack/internal/codec"
)

// Strategy is the codec recommendation for one input.
type Strategy struct {
	// Algorithm is the codec to apply.
	Algorithm format.Algorithm `cbor:"1,keyasint"`
	// EstimatedRatio is the expected original/compressed ratio. It only
	// exceeds 1.0 when Verified is set.
	EstimatedRatio float64 `cbor:"2,keyasint"`
	// Confidence is in [0,1].
	Confidence float64 `cbor:"3,keyasint"`
	// Verified reports that EstimatedRatio comes from a calibration, a
	// measurement, or an exact precondition check rather than a guess.
	Verified bool `cbor:"4,keyasint,omitempty"`
	// Fallback reports that the confidence floor overrode the nominal choice.
	Fallback bool `cbor:"5,keyasint,omitempty"`
	// Nominal is the algorithm the decision table picked before the
	// confidence floor was applied. Equal to Algorithm unless Fallback.
	Nominal format.Algorithm `cbor:"6,keyasint"`
	// ChunkSize is the suggested average chunk size, 0 when the input should
	// be processed whole.
	ChunkSize int `cbor:"7,keyasint,omitempty"`
	// ChunkOverlap is the suggested overlap between consecutive chunks.
	// Content-defined chunks never overlap, so the selector leaves it at 0;
	// it is carried for callers that split on fixed boundaries.
	ChunkOverlap int `cbor:"8,keyasint,omitempty"`
	// Reason is a short human-readable account of the decision.
	Reason string `cbor:"9,keyasint,omitempty"`
}

func (s Strategy) String() string {
	out := fmt.Sprintf("%s (ratio %.2f, confidence %.2f", s.Algorithm, s.EstimatedRatio, s.Confidence)
	if s.Verified {
		out += ", verified"
	}
	if s.Fallback {
		out += ", fallback from " + s.Nominal.String()
	}

	return out + ")"
}

// Validate checks the invariants every strategy satisfies.
func (s Strategy) Validate() error {
	const op = "strategy"

	if !s.Algorithm.IsValid() {
		return errs.New(errs.KindConfigError, op, "invalid algorithm %d", s.Algorithm)
	}
	if math.IsNaN(s.Confidence) || s.Confidence < 0 || s.Confidence > 1 {
		return errs.New(errs.KindConfigError, op, "confidence %v outside [0,1]", s.Confidence)
	}
	if math.IsNaN(s.EstimatedRatio) || s.EstimatedRatio < 0 {
		return errs.New(errs.KindConfigError, op, "negative estimated ratio %v", s.EstimatedRatio)
	}
	if s.ChunkSize < 0 || s.ChunkOverlap < 0 {
		return errs.New(errs.KindConfigError, op, "negative chunk hint")
	}

	return nil
}

// Encode serializes s as deterministic CBOR.
func (s Strategy) Encode() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, errs.Wrap(errs.KindSerialization, "encode strategy", err)
	}
	if s.Nominal == 0 {
		s.Nominal = s.Algorithm
	}

	return codec.Marshal(s)
}

// Decode parses a strategy produced by Encode.
func Decode(data []byte) (Strategy, error) {
	var s Strategy
	if err := codec.Unmarshal(data, &s); err != nil {
		return Strategy{}, err
	}
	if err := s.Validate(); err != nil {
		return Strategy{}, errs.Wrap(errs.KindSerialization, "decode strategy", err)
	}

	return s, nil
}

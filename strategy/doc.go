// Package strategy turns detector and analyzer output into a codec
// recommendation.
//
// The Selector walks a small decision table (see Selector.Select) and scores
// its choice by how far the observed repeat density sits above the table's
// threshold, relative to a reference density at which the codec is known to
// do well. Reference densities come from the built-in table or from a
// regression.Calibration measured on a reference corpus. A score under the
// confidence floor switches to the general-purpose hybrid codec.
//
// Estimated ratios above 1.0 are only reported when they are backed by a
// calibration model or an exact check; otherwise the estimate is 1.0.
package strategy

// Package detection locates license-plate-shaped regions in vehicle images.
//
// It exists for the OCR fallback recognition path. General-purpose OCR over
// a full traffic frame drowns in background text and texture; cropping to a
// few plate-shaped regions first raises its hit rate considerably. The
// native recognition engine does its own localization and never consults
// this package.
//
// # Algorithm
//
// FindPlateCandidates follows a classic window-statistics pipeline:
//
//  1. Downscale: frames wider than 800px are resized for analysis and the
//     results mapped back to source coordinates.
//  2. Edge detection: a Canny-style pass (Gaussian blur, Sobel gradients,
//     non-maximum suppression, hysteresis thresholding) produces a binary
//     edge map.
//  3. Sliding windows: plate-shaped windows (aspect ratios of roughly 2:1
//     to 4.7:1, covering North American through European formats) slide
//     over the edge map at several sizes.
//  4. Scoring: windows are kept when their edge density sits in the band
//     typical of stamped characters and their edge runs are predominantly
//     horizontal, the signature of a single row of text.
//  5. Merging: overlapping windows collapse into their union, so a plate
//     covered by several window sizes yields one candidate.
//
// # Coordinate System
//
// All coordinates use the standard image convention: origin at the top
// left, X rightward, Y downward. Bounds are inclusive on the top-left edge
// and exclusive on the bottom-right.
//
// # Confidence Scores
//
// Confidence ranges 0.0 to 1.0 and combines the horizontal-run ratio with
// how central the window's edge density is in the expected band. It ranks
// candidates within one image; it is not calibrated across images.
//
// # Limitations
//
// The windows are axis aligned, so plates photographed at a strong angle
// score poorly. Dense horizontal texture such as radiator grilles can
// produce false candidates; callers are expected to OCR the top few
// candidates and let token filtering discard the noise.
package detection

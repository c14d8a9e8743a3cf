package detection

import (
	"image"
	"math"
	"sort"

	"github.com/disintegration/imaging"
)

// Bounds is a rectangular region in pixel coordinates, top-left inclusive
// and bottom-right exclusive.
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Rect converts the bounds to a standard image.Rectangle.
func (b Bounds) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Candidate is a region likely to contain a license plate, in the
// coordinates of the image handed to FindPlateCandidates.
type Candidate struct {
	Bounds      Bounds  `json:"bounds"`
	AspectRatio float64 `json:"aspect_ratio"`
	Confidence  float64 `json:"confidence"`
}

// maxAnalysisWidth bounds the pixel count the edge detector runs over.
// Wider frames are downscaled for analysis and candidate bounds are mapped
// back onto the source coordinates afterwards.
const maxAnalysisWidth = 800

// plateAspects are the window shapes slid over the edge map. They cover
// single-row plates from the squarer North American format (~2:1) to the
// long European format (~4.7:1).
var plateAspects = []float64{2.0, 3.2, 4.7}

// plateWidthFractions are the window widths tried, as fractions of the
// frame width. A readable plate typically spans between a tenth and half
// of a capture.
var plateWidthFractions = []float64{0.15, 0.3, 0.45}

// FindPlateCandidates scans an image for plate-shaped regions: windows
// whose edge density and horizontal stroke structure look like a row of
// stamped characters. Overlapping windows are merged and the result is
// sorted by confidence, best first. minConfidence filters weak windows;
// 0.25 is a reasonable starting point.
func FindPlateCandidates(img image.Image, minConfidence float64) []Candidate {
	source := img.Bounds()
	if source.Dx() < 2 || source.Dy() < 2 {
		return nil
	}

	scale := 1.0
	work := img
	if source.Dx() > maxAnalysisWidth {
		scale = float64(source.Dx()) / float64(maxAnalysisWidth)
		work = imaging.Resize(img, maxAnalysisWidth, 0, imaging.Box)
	}
	wb := work.Bounds()
	width := wb.Dx()
	height := wb.Dy()

	edges := edgeMap(work, edgeThresholdLow, edgeThresholdHigh)

	var candidates []Candidate
	for _, frac := range plateWidthFractions {
		w := int(float64(width) * frac)
		for _, aspect := range plateAspects {
			h := int(float64(w) / aspect)
			if w < 24 || h < 8 || w > width || h > height {
				continue
			}

			stepX := w / 2
			stepY := h / 2
			for y := 0; y+h <= height; y += stepY {
				for x := 0; x+w <= width; x += stepX {
					density := edgeDensity(edges, x, y, w, h)

					// A row of characters has medium edge density.
					// Sparse windows are background, saturated ones are
					// texture like grilles or foliage.
					if density < 0.05 || density > 0.45 {
						continue
					}

					confidence := horizontalRunScore(edges, x, y, w, h) *
						(1.0 - math.Abs(density-0.2)/0.25)
					if confidence < minConfidence {
						continue
					}

					candidates = append(candidates, Candidate{
						Bounds:     Bounds{X1: x, Y1: y, X2: x + w, Y2: y + h},
						Confidence: math.Round(confidence*1000) / 1000,
					})
				}
			}
		}
	}

	merged := mergeOverlapping(candidates)

	for i := range merged {
		merged[i].Bounds = merged[i].Bounds.mapTo(scale, source)
		b := merged[i].Bounds
		if h := b.Y2 - b.Y1; h > 0 {
			merged[i].AspectRatio = math.Round(float64(b.X2-b.X1)/float64(h)*100) / 100
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})
	return merged
}

// edgeDensity is the fraction of pixels in the window marked as edges.
func edgeDensity(edges [][]bool, x, y, w, h int) float64 {
	count := 0
	for yy := y; yy < y+h; yy++ {
		row := edges[yy]
		for xx := x; xx < x+w; xx++ {
			if row[xx] {
				count++
			}
		}
	}
	return float64(count) / float64(w*h)
}

// horizontalRunScore measures how row-like the edge structure in a window
// is. Character strokes crossed row by row produce many short horizontal
// runs against few vertical ones, so the ratio climbs toward 1 over plate
// text and sits near 0.5 on isotropic texture.
func horizontalRunScore(edges [][]bool, x, y, w, h int) float64 {
	horizontalRuns := 0
	for row := y; row < y+h; row++ {
		inRun := false
		for col := x; col < x+w; col++ {
			if edges[row][col] {
				if !inRun {
					horizontalRuns++
					inRun = true
				}
			} else {
				inRun = false
			}
		}
	}

	verticalRuns := 0
	for col := x; col < x+w; col++ {
		inRun := false
		for row := y; row < y+h; row++ {
			if edges[row][col] {
				if !inRun {
					verticalRuns++
					inRun = true
				}
			} else {
				inRun = false
			}
		}
	}

	if horizontalRuns+verticalRuns == 0 {
		return 0
	}
	return float64(horizontalRuns) / float64(horizontalRuns+verticalRuns)
}

// mergeOverlapping folds overlapping candidates into their union, keeping
// the best confidence. Windows of different sizes routinely fire on the
// same plate, so this collapses the stack into one region per plate.
func mergeOverlapping(candidates []Candidate) []Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	merged := make([]Candidate, 0)
	for _, c := range candidates {
		foundMerge := false
		for i := range merged {
			if overlaps(c.Bounds, merged[i].Bounds) {
				merged[i].Bounds = union(c.Bounds, merged[i].Bounds)
				merged[i].Confidence = math.Max(c.Confidence, merged[i].Confidence)
				foundMerge = true
				break
			}
		}
		if !foundMerge {
			merged = append(merged, c)
		}
	}
	return merged
}

func overlaps(a, b Bounds) bool {
	return a.X1 < b.X2 && a.X2 > b.X1 && a.Y1 < b.Y2 && a.Y2 > b.Y1
}

func union(a, b Bounds) Bounds {
	return Bounds{
		X1: min(a.X1, b.X1),
		Y1: min(a.Y1, b.Y1),
		X2: max(a.X2, b.X2),
		Y2: max(a.Y2, b.Y2),
	}
}

// mapTo converts analysis coordinates back onto the source image, scaling
// by the downsample factor and clamping to the source bounds.
func (b Bounds) mapTo(scale float64, target image.Rectangle) Bounds {
	out := Bounds{
		X1: target.Min.X + int(float64(b.X1)*scale),
		Y1: target.Min.Y + int(float64(b.Y1)*scale),
		X2: target.Min.X + int(math.Ceil(float64(b.X2)*scale)),
		Y2: target.Min.Y + int(math.Ceil(float64(b.Y2)*scale)),
	}
	out.X1 = clamp(out.X1, target.Min.X, target.Max.X)
	out.Y1 = clamp(out.Y1, target.Min.Y, target.Max.Y)
	out.X2 = clamp(out.X2, target.Min.X, target.Max.X)
	out.Y2 = clamp(out.Y2, target.Min.Y, target.Max.Y)
	return out
}

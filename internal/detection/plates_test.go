package detection

import (
	"image"
	"image/color"
	"testing"
)

// createTestImage creates a solid-color image for testing
func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createPlateImage paints a plate-like region onto a white frame: a dark
// border enclosing a row of vertical character strokes.
func createPlateImage(width, height int, plate image.Rectangle, stroke int) *image.RGBA {
	img := createTestImage(width, height, color.White)
	dark := color.RGBA{30, 30, 30, 255}

	for t := 0; t < 2; t++ {
		for x := plate.Min.X; x < plate.Max.X; x++ {
			img.Set(x, plate.Min.Y+t, dark)
			img.Set(x, plate.Max.Y-1-t, dark)
		}
		for y := plate.Min.Y; y < plate.Max.Y; y++ {
			img.Set(plate.Min.X+t, y, dark)
			img.Set(plate.Max.X-1-t, y, dark)
		}
	}

	inset := 4
	for x := plate.Min.X + inset; x < plate.Max.X-inset; x += 2*stroke + 1 {
		for sx := 0; sx < stroke && x+sx < plate.Max.X-inset; sx++ {
			for y := plate.Min.Y + inset; y < plate.Max.Y-inset; y++ {
				img.Set(x+sx, y, dark)
			}
		}
	}

	return img
}

func containsPoint(b Bounds, x, y int) bool {
	return x >= b.X1 && x < b.X2 && y >= b.Y1 && y < b.Y2
}

func TestFindPlateCandidates(t *testing.T) {
	plate := image.Rect(80, 60, 268, 100)
	img := createPlateImage(400, 200, plate, 3)

	candidates := FindPlateCandidates(img, 0.2)
	if len(candidates) == 0 {
		t.Fatal("expected at least one candidate over the plate region")
	}

	cx := plate.Min.X + plate.Dx()/2
	cy := plate.Min.Y + plate.Dy()/2
	found := false
	for _, c := range candidates {
		if containsPoint(c.Bounds, cx, cy) {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("no candidate contains the plate center (%d,%d): %+v", cx, cy, candidates)
	}

	for _, c := range candidates {
		if c.Confidence <= 0 || c.Confidence > 1 {
			t.Errorf("confidence out of range: %f", c.Confidence)
		}
		if c.Bounds.X1 < 0 || c.Bounds.Y1 < 0 || c.Bounds.X2 > 400 || c.Bounds.Y2 > 200 {
			t.Errorf("candidate outside image bounds: %+v", c.Bounds)
		}
	}
}

func TestFindPlateCandidates_EmptyImage(t *testing.T) {
	img := createTestImage(400, 200, color.White)

	candidates := FindPlateCandidates(img, 0.2)
	if len(candidates) != 0 {
		t.Errorf("expected no candidates in a blank image, got %d", len(candidates))
	}
}

func TestFindPlateCandidates_Checkerboard(t *testing.T) {
	// Single-pixel noise averages out under the Gaussian blur, so a
	// checkerboard should produce no edges and no candidates.
	img := createTestImage(200, 100, color.White)
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.Black)
			}
		}
	}

	candidates := FindPlateCandidates(img, 0.2)
	if len(candidates) != 0 {
		t.Errorf("expected no candidates on checkerboard noise, got %d", len(candidates))
	}
}

func TestFindPlateCandidates_MinConfidence(t *testing.T) {
	img := createPlateImage(400, 200, image.Rect(80, 60, 268, 100), 3)

	low := FindPlateCandidates(img, 0.1)
	high := FindPlateCandidates(img, 0.8)

	if len(high) > len(low) {
		t.Errorf("higher minConfidence should give fewer candidates: low=%d, high=%d",
			len(low), len(high))
	}
}

func TestFindPlateCandidates_SortedByConfidence(t *testing.T) {
	img := createPlateImage(400, 200, image.Rect(80, 60, 268, 100), 3)

	candidates := FindPlateCandidates(img, 0.1)
	for i := 1; i < len(candidates); i++ {
		if candidates[i-1].Confidence < candidates[i].Confidence {
			t.Error("candidates should be sorted by confidence, best first")
			break
		}
	}
}

func TestFindPlateCandidates_DownscaledAnalysis(t *testing.T) {
	// Wider than maxAnalysisWidth, so localization runs on a downscaled
	// copy. Candidate bounds must still come back in source coordinates.
	plate := image.Rect(160, 120, 536, 200)
	img := createPlateImage(1600, 800, plate, 6)

	candidates := FindPlateCandidates(img, 0.2)
	if len(candidates) == 0 {
		t.Fatal("expected at least one candidate over the plate region")
	}

	cx := plate.Min.X + plate.Dx()/2
	cy := plate.Min.Y + plate.Dy()/2
	found := false
	for _, c := range candidates {
		if containsPoint(c.Bounds, cx, cy) {
			found = true
		}
		if c.Bounds.X1 < 0 || c.Bounds.Y1 < 0 || c.Bounds.X2 > 1600 || c.Bounds.Y2 > 800 {
			t.Errorf("candidate outside source bounds: %+v", c.Bounds)
		}
	}
	if !found {
		t.Errorf("no candidate contains the plate center (%d,%d)", cx, cy)
	}
}

func TestFindPlateCandidates_TinyImage(t *testing.T) {
	img := createTestImage(10, 10, color.White)

	// Smaller than any plate window; must not panic.
	candidates := FindPlateCandidates(img, 0.2)
	if len(candidates) != 0 {
		t.Errorf("expected no candidates in a 10x10 image, got %d", len(candidates))
	}
}

func TestBoundsRect(t *testing.T) {
	b := Bounds{X1: 10, Y1: 20, X2: 30, Y2: 40}
	if got, want := b.Rect(), image.Rect(10, 20, 30, 40); got != want {
		t.Errorf("Rect: got %v, want %v", got, want)
	}
}

func TestHorizontalRunScore(t *testing.T) {
	edges := make([][]bool, 30)
	for y := range edges {
		edges[y] = make([]bool, 50)
	}

	// Vertical strokes: many short horizontal runs, few vertical ones.
	for x := 5; x < 45; x += 5 {
		for y := 0; y < 30; y++ {
			edges[y][x] = true
		}
	}

	if score := horizontalRunScore(edges, 0, 0, 50, 30); score < 0.9 {
		t.Errorf("vertical strokes should score near 1, got %.3f", score)
	}
}

func TestHorizontalRunScore_HorizontalLines(t *testing.T) {
	edges := make([][]bool, 30)
	for y := range edges {
		edges[y] = make([]bool, 50)
	}

	// Solid horizontal lines: one horizontal run each, but a vertical run
	// in every column they cross.
	for _, y := range []int{5, 15, 25} {
		for x := 0; x < 50; x++ {
			edges[y][x] = true
		}
	}

	if score := horizontalRunScore(edges, 0, 0, 50, 30); score > 0.1 {
		t.Errorf("horizontal lines should score near 0, got %.3f", score)
	}
}

func TestHorizontalRunScore_Empty(t *testing.T) {
	edges := make([][]bool, 30)
	for y := range edges {
		edges[y] = make([]bool, 50)
	}

	if score := horizontalRunScore(edges, 0, 0, 50, 30); score != 0 {
		t.Errorf("empty window should score 0, got %.3f", score)
	}
}

func TestMergeOverlapping(t *testing.T) {
	candidates := []Candidate{
		{Bounds: Bounds{X1: 10, Y1: 10, X2: 50, Y2: 30}, Confidence: 0.8},
		{Bounds: Bounds{X1: 30, Y1: 10, X2: 70, Y2: 30}, Confidence: 0.7},
		{Bounds: Bounds{X1: 100, Y1: 100, X2: 150, Y2: 130}, Confidence: 0.6},
	}

	merged := mergeOverlapping(candidates)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged candidates, got %d", len(merged))
	}

	if got, want := merged[0].Bounds, (Bounds{X1: 10, Y1: 10, X2: 70, Y2: 30}); got != want {
		t.Errorf("merged bounds: got %+v, want %+v", got, want)
	}
	if merged[0].Confidence != 0.8 {
		t.Errorf("merge should keep the best confidence, got %f", merged[0].Confidence)
	}
}

func TestMergeOverlapping_Empty(t *testing.T) {
	if merged := mergeOverlapping(nil); len(merged) != 0 {
		t.Errorf("expected no candidates, got %d", len(merged))
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Bounds
		expected bool
	}{
		{
			"overlapping",
			Bounds{X1: 0, Y1: 0, X2: 50, Y2: 50},
			Bounds{X1: 25, Y1: 25, X2: 75, Y2: 75},
			true,
		},
		{
			"disjoint horizontal",
			Bounds{X1: 0, Y1: 0, X2: 50, Y2: 50},
			Bounds{X1: 60, Y1: 0, X2: 100, Y2: 50},
			false,
		},
		{
			"disjoint vertical",
			Bounds{X1: 0, Y1: 0, X2: 50, Y2: 50},
			Bounds{X1: 0, Y1: 60, X2: 50, Y2: 100},
			false,
		},
		{
			"touching edges",
			Bounds{X1: 0, Y1: 0, X2: 50, Y2: 50},
			Bounds{X1: 50, Y1: 0, X2: 100, Y2: 50},
			false,
		},
		{
			"contained",
			Bounds{X1: 0, Y1: 0, X2: 100, Y2: 100},
			Bounds{X1: 25, Y1: 25, X2: 75, Y2: 75},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overlaps(tt.a, tt.b); got != tt.expected {
				t.Errorf("overlaps: got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUnion(t *testing.T) {
	a := Bounds{X1: 10, Y1: 20, X2: 50, Y2: 60}
	b := Bounds{X1: 30, Y1: 40, X2: 80, Y2: 90}

	if got, want := union(a, b), (Bounds{X1: 10, Y1: 20, X2: 80, Y2: 90}); got != want {
		t.Errorf("union: got %+v, want %+v", got, want)
	}
}

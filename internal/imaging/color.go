package imaging

import (
	"image"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// DominantColorResult describes the most common color in an image. Hex is
// lowercase "#rrggbb"; Name is the nearest entry of a small vehicle color
// palette; Fraction is the share of sampled pixels falling into the winning
// color bucket.
type DominantColorResult struct {
	Hex      string  `json:"hex"`
	Name     string  `json:"name"`
	Fraction float64 `json:"fraction"`
}

// namedColors is the palette scan metadata is labeled with. Perceptual
// distance in Lab space picks the nearest name, so the reference points are
// deliberately coarse.
var namedColors = []struct {
	name string
	c    colorful.Color
}{
	{"black", colorful.Color{R: 0.05, G: 0.05, B: 0.05}},
	{"white", colorful.Color{R: 0.95, G: 0.95, B: 0.95}},
	{"gray", colorful.Color{R: 0.5, G: 0.5, B: 0.5}},
	{"silver", colorful.Color{R: 0.75, G: 0.75, B: 0.78}},
	{"red", colorful.Color{R: 0.8, G: 0.1, B: 0.12}},
	{"orange", colorful.Color{R: 0.9, G: 0.55, B: 0.1}},
	{"yellow", colorful.Color{R: 0.95, G: 0.88, B: 0.15}},
	{"green", colorful.Color{R: 0.1, G: 0.55, B: 0.2}},
	{"blue", colorful.Color{R: 0.12, G: 0.3, B: 0.75}},
	{"brown", colorful.Color{R: 0.42, G: 0.26, B: 0.13}},
}

// DominantColor estimates the dominant color of an image. It samples a grid
// of at most roughly 64x64 pixels, buckets the samples by coarse RGB value,
// and averages the winning bucket. Useful as cheap vehicle color metadata
// for a stored scan; it makes no attempt to segment the vehicle from the
// background.
func DominantColor(img image.Image) *DominantColorResult {
	bounds := img.Bounds()

	stepX := bounds.Dx() / 64
	if stepX < 1 {
		stepX = 1
	}
	stepY := bounds.Dy() / 64
	if stepY < 1 {
		stepY = 1
	}

	type bucket struct {
		count   int
		r, g, b float64
	}
	buckets := make(map[uint32]*bucket)
	total := 0

	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			r, g, b, _ := img.At(x, y).RGBA()
			r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(b>>8)

			// 4 bits per channel keeps similar shades together.
			key := uint32(r8>>4)<<8 | uint32(g8>>4)<<4 | uint32(b8>>4)
			bk := buckets[key]
			if bk == nil {
				bk = &bucket{}
				buckets[key] = bk
			}
			bk.count++
			bk.r += float64(r8)
			bk.g += float64(g8)
			bk.b += float64(b8)
			total++
		}
	}

	var best *bucket
	for _, bk := range buckets {
		if best == nil || bk.count > best.count {
			best = bk
		}
	}
	if best == nil {
		return &DominantColorResult{Hex: "#000000", Name: "black"}
	}

	n := float64(best.count)
	c := colorful.Color{
		R: best.r / n / 255,
		G: best.g / n / 255,
		B: best.b / n / 255,
	}
	return &DominantColorResult{
		Hex:      c.Hex(),
		Name:     nearestColorName(c),
		Fraction: math.Round(float64(best.count)/float64(total)*1000) / 1000,
	}
}

func nearestColorName(c colorful.Color) string {
	bestName := namedColors[0].name
	bestDist := math.MaxFloat64
	for _, nc := range namedColors {
		if d := c.DistanceLab(nc.c); d < bestDist {
			bestDist = d
			bestName = nc.name
		}
	}
	return bestName
}

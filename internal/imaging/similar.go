package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// similaritySize is the edge length frames are normalized to before
// comparison. 64 distinguishes different vehicles fine while keeping the
// comparison far cheaper than recognition.
const similaritySize = 64

// Similarity scores how alike two frames look, from 0.0 for completely
// different to 1.0 for identical. Both images are resized onto a common
// 64x64 grid first, so inputs of different dimensions compare fine.
//
// The watcher uses this to skip near-duplicate captures: cameras tend to
// emit bursts of frames of the same vehicle.
func Similarity(a, b image.Image) float64 {
	na := imaging.Resize(a, similaritySize, similaritySize, imaging.Box)
	nb := imaging.Resize(b, similaritySize, similaritySize, imaging.Box)

	different := 0
	for y := 0; y < similaritySize; y++ {
		for x := 0; x < similaritySize; x++ {
			r1, g1, b1, _ := na.At(x, y).RGBA()
			r2, g2, b2, _ := nb.At(x, y).RGBA()

			diff := (channelDiff(r1, r2) + channelDiff(g1, g2) + channelDiff(b1, b2)) / 3
			if diff > 10 {
				different++
			}
		}
	}

	return 1.0 - float64(different)/float64(similaritySize*similaritySize)
}

func channelDiff(a, b uint32) int {
	av := int(a >> 8)
	bv := int(b >> 8)
	if av > bv {
		return av - bv
	}
	return bv - av
}

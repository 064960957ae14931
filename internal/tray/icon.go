package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
)

// IconSize is the edge length of the tray icon in pixels.
const IconSize = 22

// samples per pixel edge used for antialiasing
const supersample = 4

// arrow is the cursor outline, in pixel coordinates.
var arrow = [3][2]float64{{5, 2}, {5, 19}, {17, 13}}

// Icon returns the tray icon as PNG: a white pointer arrow on a transparent
// background.
var Icon = sync.OnceValue(func() []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, drawIcon()); err != nil {
		return nil
	}
	return buf.Bytes()
})

func drawIcon() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, IconSize, IconSize))
	const total = supersample * supersample
	for y := range IconSize {
		for x := range IconSize {
			hits := 0
			for sy := range supersample {
				for sx := range supersample {
					fx := float64(x) + (float64(sx)+0.5)/supersample
					fy := float64(y) + (float64(sy)+0.5)/supersample
					if insideArrow(fx, fy) {
						hits++
					}
				}
			}
			if hits > 0 {
				img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: uint8(hits * 255 / total)})
			}
		}
	}
	return img
}

// insideArrow reports whether the point lies inside the arrow triangle.
func insideArrow(x, y float64) bool {
	side := func(a, b [2]float64) float64 {
		return (b[0]-a[0])*(y-a[1]) - (b[1]-a[1])*(x-a[0])
	}
	d1 := side(arrow[0], arrow[1])
	d2 := side(arrow[1], arrow[2])
	d3 := side(arrow[2], arrow[0])
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

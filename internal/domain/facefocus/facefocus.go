// Package facefocus picks a CSS object-position for headshots by finding the
// brightest cell of a 3x3 grid, with a bias toward the upper rows.
package facefocus

import (
	"image"
	"image/color"
	"math"
	"strconv"
)

const gridSize = 3

// rowBonus biases the top and middle rows, where faces usually are.
var rowBonus = [gridSize]float64{1.2, 1.1, 1.0}

// Position is an object-position in percent.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Default is used when an image cannot be read or yields no samples.
var Default = Position{X: 50, Y: 35}

// CSS renders the position as an object-position value, e.g. "50% 16.67%".
func (p Position) CSS() string {
	return percent(p.X) + " " + percent(p.Y)
}

func percent(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + "%"
}

// Detect returns the center of the brightest adjusted grid cell. Every other
// pixel is sampled in both directions. A cell wins only when strictly
// brighter than the best so far, which starts at zero.
// POST: returns Default for a nil or empty image, or an all-black one
func Detect(img image.Image) Position {
	if img == nil {
		return Default
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return Default
	}
	cellW := float64(w) / gridSize
	cellH := float64(h) / gridSize

	best := 0.0
	pos := Default
	for row := 0; row < gridSize; row++ {
		for col := 0; col < gridSize; col++ {
			startX := int(math.Floor(float64(col) * cellW))
			startY := int(math.Floor(float64(row) * cellH))
			endX := int(math.Floor(float64(col+1) * cellW))
			endY := int(math.Floor(float64(row+1) * cellH))

			var sum float64
			var n int
			for y := startY; y < endY; y += 2 {
				for x := startX; x < endX; x += 2 {
					c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
					sum += (float64(c.R) + float64(c.G) + float64(c.B)) / 3
					n++
				}
			}
			if n == 0 {
				continue
			}
			adjusted := sum / float64(n) * rowBonus[row]
			if adjusted > best {
				best = adjusted
				pos = Position{
					X: (float64(col) + 0.5) / gridSize * 100,
					Y: (float64(row) + 0.5) / gridSize * 100,
				}
			}
		}
	}
	return pos
}

// MemberKey is the memo key of a member's portal photo.
func MemberKey(memberID string) string {
	return "member:" + memberID
}

package raster

import (
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/inamate/dynmap/internal/pathdata"
)

var namedColors = map[string]color.NRGBA{
	"transparent": {},
	"black":       {A: 0xff},
	"white":       {R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	"red":         {R: 0xff, A: 0xff},
	"green":       {G: 0x80, A: 0xff},
	"lime":        {G: 0xff, A: 0xff},
	"blue":        {B: 0xff, A: 0xff},
	"yellow":      {R: 0xff, G: 0xff, A: 0xff},
	"orange":      {R: 0xff, G: 0xa5, A: 0xff},
	"gray":        {R: 0x80, G: 0x80, B: 0x80, A: 0xff},
	"grey":        {R: 0x80, G: 0x80, B: 0x80, A: 0xff},
}

// ParseColor parses a CSS fill style: "#rgb", "#rrggbb", "rgb(r,g,b)",
// "rgba(r,g,b,a)" or one of a few color names.
func ParseColor(style string) (color.NRGBA, bool) {
	s := strings.ToLower(strings.TrimSpace(style))

	switch {
	case strings.HasPrefix(s, "#"):
		c, err := colorful.Hex(s)
		if err != nil {
			return color.NRGBA{}, false
		}
		r, g, b := c.RGB255()
		return color.NRGBA{R: r, G: g, B: b, A: 0xff}, true

	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		nums, err := pathdata.ParseNumbers(s[len("rgba(") : len(s)-1])
		if err != nil || len(nums) != 4 {
			return color.NRGBA{}, false
		}
		return color.NRGBA{
			R: channel(nums[0]),
			G: channel(nums[1]),
			B: channel(nums[2]),
			A: uint8(math.Round(clamp(nums[3], 0, 1) * 255)),
		}, true

	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		nums, err := pathdata.ParseNumbers(s[len("rgb(") : len(s)-1])
		if err != nil || len(nums) != 3 {
			return color.NRGBA{}, false
		}
		return color.NRGBA{R: channel(nums[0]), G: channel(nums[1]), B: channel(nums[2]), A: 0xff}, true
	}

	c, ok := namedColors[s]
	return c, ok
}

func channel(v float64) uint8 {
	return uint8(math.Round(clamp(v, 0, 255)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

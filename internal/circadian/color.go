package circadian

import "math"

const (
	minXYKelvin    = 1000
	maxXYKelvin    = 25000
	minMiredKelvin = 500
	maxMiredKelvin = 6500
)

// RGB is an 8-bit sRGB triple
type RGB [3]uint8

// XY is a CIE 1931 chromaticity coordinate
type XY [2]float64

// D65 white, returned for black input
var whitePoint = XY{0.3127, 0.3290}

// KelvinToXY approximates the Planckian locus (Krystek & Moritz). Input is
// clamped to 1000-25000K.
func KelvinToXY(kelvin float64) XY {
	t := clamp(kelvin, minXYKelvin, maxXYKelvin)
	inv := 1000 / t

	var x float64
	if t <= 4000 {
		x = -0.2661239*cube(inv) - 0.2343589*inv*inv + 0.8776956*inv + 0.179910
	} else {
		x = -3.0258469*cube(inv) + 2.1070379*inv*inv + 0.2226347*inv + 0.240390
	}

	var y float64
	switch {
	case t <= 2222:
		y = -1.1063814*cube(x) - 1.34811020*x*x + 2.18555832*x - 0.20219683
	case t <= 4000:
		y = -0.9549476*cube(x) - 1.37418593*x*x + 2.09137015*x - 0.16748867
	default:
		y = 3.0817580*cube(x) - 5.87338670*x*x + 3.75112997*x - 0.37001483
	}

	return XY{x, y}
}

// KelvinToRGB converts a color temperature to gamma-encoded sRGB
func KelvinToRGB(kelvin float64) RGB {
	return XYToRGB(KelvinToXY(kelvin))
}

// XYToRGB converts a chromaticity at full luminance to sRGB. Out-of-gamut
// channels are clipped and the result renormalized so the brightest channel
// is at most 1.
func XYToRGB(xy XY) RGB {
	x, y := xy[0], xy[1]
	var X, Z float64
	const Y = 1.0
	if y != 0 {
		X = x * Y / y
		Z = (1 - x - y) * Y / y
	}

	r := 3.2404542*X - 1.5371385*Y - 0.4985314*Z
	g := -0.9692660*X + 1.8760108*Y + 0.0415560*Z
	b := 0.0556434*X - 0.2040259*Y + 1.0572252*Z

	r, g, b = math.Max(0, r), math.Max(0, g), math.Max(0, b)
	if m := math.Max(r, math.Max(g, b)); m > 1 {
		r, g, b = r/m, g/m, b/m
	}

	return RGB{toByte(gammaEncode(r)), toByte(gammaEncode(g)), toByte(gammaEncode(b))}
}

// RGBToXY decodes sRGB to linear light and projects it to chromaticity
func RGBToXY(rgb RGB) XY {
	r := gammaDecode(float64(rgb[0]) / 255)
	g := gammaDecode(float64(rgb[1]) / 255)
	b := gammaDecode(float64(rgb[2]) / 255)

	X := 0.4124564*r + 0.3575761*g + 0.1804375*b
	Y := 0.2126729*r + 0.7151522*g + 0.0721750*b
	Z := 0.0193339*r + 0.1191920*g + 0.9503041*b

	sum := X + Y + Z
	if sum == 0 {
		return whitePoint
	}
	return XY{X / sum, Y / sum}
}

// KelvinToMired converts to reciprocal megakelvin, clamping the input to
// 500-6500K
func KelvinToMired(kelvin float64) int {
	return int(math.Round(1e6 / clamp(kelvin, minMiredKelvin, maxMiredKelvin)))
}

// MiredToKelvin is the inverse of KelvinToMired
func MiredToKelvin(mired int) int {
	if mired <= 0 {
		return maxMiredKelvin
	}
	return int(math.Round(1e6 / float64(mired)))
}

func gammaEncode(c float64) float64 {
	if c <= 0.0031308 {
		return 12.92 * c
	}
	return 1.055*math.Pow(c, 1/2.4) - 0.055
}

func gammaDecode(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

func toByte(c float64) uint8 {
	return uint8(clamp(math.Round(c*255), 0, 255))
}

func cube(v float64) float64 { return v * v * v }

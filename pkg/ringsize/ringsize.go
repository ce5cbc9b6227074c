// Package ringsize estimates wire length and metal weight for a ring shank
// from a UK ring size and a wire cross-section.
package ringsize

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// SilverDensity is sterling silver in g/cm³.
const SilverDensity = 10.36

// halfSizeMM is added to a letter size's circumference for its half size.
const halfSizeMM = 0.6

var letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// innerCircumferenceMM holds the whole UK sizes A to Z.
var innerCircumferenceMM = [26]float64{
	37.8, 39.1, 40.4, 41.7, 42.9, 44.2, 45.5, 46.8, 48.0, 49.3, 50.6, 51.9, 53.1,
	54.4, 55.7, 57.0, 58.3, 59.5, 60.8, 62.1, 63.4, 64.6, 65.9, 67.2, 68.5, 69.7,
}

// Size is a UK ring size such as "L" or "L 1/2".
type Size struct {
	Label              string  `json:"label"`
	InnerCircumference float64 `json:"inner_circumference_mm"`
}

// Sizes lists every size from A to Z 1/2.
func Sizes() []Size {
	out := make([]Size, 0, 2*len(innerCircumferenceMM))
	for i, c := range innerCircumferenceMM {
		l := string(letters[i])
		out = append(out, Size{Label: l, InnerCircumference: c}, Size{Label: l + " 1/2", InnerCircumference: c + halfSizeMM})
	}
	return out
}

// ParseSize accepts "L", "l", "L 1/2", "L1/2" and "L.5".
func ParseSize(s string) (Size, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	half := false
	for _, suffix := range []string{"1/2", ".5", "½"} {
		if strings.HasSuffix(norm, suffix) {
			norm = strings.TrimSuffix(norm, suffix)
			half = true
			break
		}
	}
	if len(norm) != 1 || !strings.Contains(letters, norm) {
		return Size{}, fmt.Errorf("unknown UK ring size %q (A to Z, optionally with 1/2)", s)
	}

	i := strings.Index(letters, norm)
	size := Size{Label: norm, InnerCircumference: innerCircumferenceMM[i]}
	if half {
		size.Label += " 1/2"
		size.InnerCircumference += halfSizeMM
	}
	return size, nil
}

// Shape is a wire cross-section.
type Shape string

const (
	Round     Shape = "round"
	Square    Shape = "square"
	HalfRound Shape = "half-round"
)

// ParseShape resolves a shape name.
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "round":
		return Round, nil
	case "square", "rectangle", "rectangular":
		return Square, nil
	case "half-round", "halfround", "half_round", "d":
		return HalfRound, nil
	}
	return "", fmt.Errorf("unknown wire shape %q (round, square, half-round)", s)
}

// Area returns the cross-section area in mm² for width × height.
func (s Shape) Area(widthMM, heightMM float64) float64 {
	switch s {
	case Square:
		return widthMM * heightMM
	case HalfRound:
		return math.Pi * (widthMM / 2) * heightMM / 2
	}
	return math.Pi * (widthMM / 2) * (heightMM / 2)
}

// Blank describes the wire needed for one ring.
type Blank struct {
	Size      Size    `json:"size"`
	Shape     Shape   `json:"shape"`
	LengthMM  float64 `json:"length_mm"`
	AreaMM2   float64 `json:"area_mm2"`
	VolumeCM3 float64 `json:"volume_cm3"`
	WeightG   float64 `json:"weight_g"`
}

// Calculate sizes a blank. Length follows the neutral axis: the inner
// diameter plus one wire height. A zero density means silver.
func Calculate(size Size, shape Shape, widthMM, heightMM, density float64) (Blank, error) {
	if widthMM <= 0 || heightMM <= 0 {
		return Blank{}, errors.New("wire width and height must be positive")
	}
	if density == 0 {
		density = SilverDensity
	}
	if density < 0 {
		return Blank{}, errors.New("density must be positive")
	}

	length := math.Pi * (size.InnerCircumference/math.Pi + heightMM)
	area := shape.Area(widthMM, heightMM)
	volume := (area / 100) * (length / 10)

	return Blank{
		Size:      size,
		Shape:     shape,
		LengthMM:  length,
		AreaMM2:   area,
		VolumeCM3: volume,
		WeightG:   volume * density,
	}, nil
}

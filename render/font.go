package render

import (
	"fmt"
	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"image/color"
	"os"
)

// Alignment positions a label horizontally against its detection box
type Alignment int

const (
	Left   Alignment = 1
	Center Alignment = 2
	Right  Alignment = 3
)

// Font holds the Hershey font settings used for label text and the padding
// of the filled label background around it
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// padding in pixels between the text and the label background edge
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
	// Alignment of the label against the top edge of the box
	Alignment Alignment
	// AutoContrast picks black or white text depending on the label
	// background, overriding Color
	AutoContrast bool
}

// DefaultFont returns small anti-aliased Hershey text whose color follows
// the label background
func DefaultFont() Font {
	return Font{
		Face:         gocv.FontHersheySimplex,
		Scale:        0.5,
		Color:        White,
		Thickness:    1,
		LineType:     gocv.LineAA,
		LeftPad:      4,
		RightPad:     4,
		TopPad:       4,
		BottomPad:    6,
		Alignment:    Left,
		AutoContrast: true,
	}
}

// LoadTTF loads a TrueType or OpenType font file at the given point size for
// drawing labels in scripts the Hershey fonts do not cover
func LoadTTF(file string, size float64) (font.Face, error) {

	fontBytes, err := os.ReadFile(file)

	if err != nil {
		return nil, fmt.Errorf("error reading font file: %w", err)
	}

	return parseTTF(fontBytes, size)
}

// GoFont returns the Go Regular font at the given point size
func GoFont(size float64) (font.Face, error) {
	return parseTTF(goregular.TTF, size)
}

func parseTTF(fontBytes []byte, size float64) (font.Face, error) {

	f, err := opentype.Parse(fontBytes)

	if err != nil {
		return nil, fmt.Errorf("error parsing font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("error creating font face: %w", err)
	}

	return face, nil
}

package render

import (
	"github.com/google/go-cmp/cmp"
	"image/color"
	"testing"
)

func TestPaletteFromHex(t *testing.T) {

	p, err := PaletteFromHex("#ff0000", "#0000ff", "#FFB21D")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Palette{red, blue, {R: 255, G: 178, B: 29, A: 255}}

	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("PaletteFromHex mismatch (-want +got):\n%s", diff)
	}

	if _, err := PaletteFromHex("#ff0000", "not-a-color"); err == nil {
		t.Error("expected error for invalid hex color")
	}
}

func TestPaletteAt(t *testing.T) {

	p := Palette{red, blue}

	tests := []struct {
		index int
		want  color.RGBA
	}{
		{0, red},
		{1, blue},
		{2, red},
		{5, blue},
		{-1, blue},
	}

	for _, tc := range tests {
		if got := p.At(tc.index); got != tc.want {
			t.Errorf("At(%d) expected %v, got %v", tc.index, tc.want, got)
		}
	}

	if got := (Palette{}).At(1); got != classColors[1] {
		t.Errorf("expected empty palette to use default colors, got %v", got)
	}

	if len(DefaultPalette()) != 64 {
		t.Errorf("expected 64 default colors, got %d", len(DefaultPalette()))
	}

	if len(WarmPalette(5)) != 5 {
		t.Error("expected 5 generated colors")
	}
}

func TestContrastColor(t *testing.T) {

	tests := []struct {
		bg   color.RGBA
		want color.RGBA
	}{
		{White, Black},
		{Black, White},
		{color.RGBA{R: 255, G: 255, B: 0, A: 255}, Black},
		{color.RGBA{R: 0, G: 0, B: 128, A: 255}, White},
	}

	for _, tc := range tests {
		if got := ContrastColor(tc.bg); got != tc.want {
			t.Errorf("ContrastColor(%v) expected %v, got %v", tc.bg, tc.want, got)
		}
	}
}

package render

import (
	"fmt"
	"github.com/swdee/go-annotate"
	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"image"
	"image/color"
)

// LabelAnnotator draws a text label on a filled background at the top of
// each detection box
type LabelAnnotator struct {
	// Font sets the text style, padding and alignment of labels
	Font Font
	// Palette supplies the label background colors
	Palette Palette
	// Lookup selects how a detection is matched to a palette color
	Lookup Lookup
	// TTF when set is used to draw the text instead of the Hershey font in
	// Font, for scripts such as Chinese the Hershey fonts do not cover
	TTF font.Face
}

// boxLabel defines where the detection object label should be rendered on
// source image
type boxLabel struct {
	// index of the detection the label belongs to
	index   int
	rect    image.Rectangle
	clr     color.RGBA
	textClr color.RGBA
	text    string
	textPos image.Point
}

// DefaultLabelAnnotator returns a LabelAnnotator using the default font and
// palette
func DefaultLabelAnnotator() LabelAnnotator {
	return LabelAnnotator{
		Font:    DefaultFont(),
		Palette: DefaultPalette(),
		Lookup:  ByIndex,
	}
}

// DefaultLabels returns the label text used when no custom labels are given,
// the class name followed by the confidence score
func DefaultLabels(d *annotate.Detections) []string {

	if d == nil {
		return nil
	}

	labels := make([]string, d.Len())

	for i := range labels {
		labels[i] = fmt.Sprintf("%s %.2f", d.Label(i), d.Confidence[i])
	}

	return labels
}

// Annotate returns a copy of scene with the default labels drawn on it
func (l LabelAnnotator) Annotate(scene gocv.Mat, d *annotate.Detections) (gocv.Mat, error) {

	if err := validate(d); err != nil {
		return gocv.NewMat(), err
	}

	return l.AnnotateWithLabels(scene, d, DefaultLabels(d))
}

// AnnotateWithLabels returns a copy of scene with the given labels drawn on
// it.  labels[i] is drawn on the i-th detection so there must be exactly one
// label per detection.
func (l LabelAnnotator) AnnotateWithLabels(scene gocv.Mat, d *annotate.Detections,
	labels []string) (gocv.Mat, error) {

	if err := checkLabels(d, labels); err != nil {
		return gocv.NewMat(), err
	}

	return annotateCopy(scene, d, func(img *gocv.Mat, d *annotate.Detections) error {
		return l.draw(img, d, labels)
	})
}

// Draw renders the default labels directly onto img
func (l LabelAnnotator) Draw(img *gocv.Mat, d *annotate.Detections) error {

	if err := validate(d); err != nil {
		return err
	}

	return l.DrawWithLabels(img, d, DefaultLabels(d))
}

// DrawWithLabels renders the given labels directly onto img
func (l LabelAnnotator) DrawWithLabels(img *gocv.Mat, d *annotate.Detections,
	labels []string) error {

	if err := checkLabels(d, labels); err != nil {
		return err
	}

	return drawChecked(img, d, func(img *gocv.Mat, d *annotate.Detections) error {
		return l.draw(img, d, labels)
	})
}

// validate checks the detections are index aligned before labels are built
// from them
func validate(d *annotate.Detections) error {
	if d == nil {
		return nil
	}
	return d.Validate()
}

// checkLabels verifies there is one label per detection
func checkLabels(d *annotate.Detections, labels []string) error {

	n := 0

	if d != nil {
		n = d.Len()
	}

	if len(labels) != n {
		return fmt.Errorf("%w: %d labels for %d detections", ErrLabelCount, len(labels), n)
	}

	return nil
}

func (l LabelAnnotator) draw(img *gocv.Mat, d *annotate.Detections, labels []string) error {

	boxLabels := l.layout(d, labels)

	// draw all label backgrounds first so text is the top most layer
	for _, box := range boxLabels {
		gocv.Rectangle(img, box.rect, box.clr, -1)
	}

	if l.TTF != nil {
		return l.drawTTF(img, boxLabels)
	}

	for _, box := range boxLabels {
		gocv.PutTextWithParams(img, box.text, box.textPos,
			l.Font.Face, l.Font.Scale, box.textClr, l.Font.Thickness,
			l.Font.LineType, false)
	}

	return nil
}

// layout calculates the position of each label relative to its detection
// box
func (l LabelAnnotator) layout(d *annotate.Detections, labels []string) []boxLabel {

	style := l.Font
	boxLabels := make([]boxLabel, 0, len(labels))

	for i, text := range labels {

		box := d.XYXY[i].Rect()
		useClr := l.Palette.colorFor(d, i, l.Lookup)
		textSize := l.textSize(text)

		// Calculate the alignment of text label
		var centerX int

		switch style.Alignment {
		case Center:
			centerX = (box.Min.X + box.Max.X) / 2

		case Right:
			centerX = box.Max.X - (textSize.X / 2) - style.RightPad

		case Left:
			fallthrough
		default:
			centerX = box.Min.X + (textSize.X / 2) + style.LeftPad
		}

		// Adjust the label position so the text is centered horizontally
		labelPosition := image.Pt(centerX-textSize.X/2, box.Min.Y-style.BottomPad)

		// create box for placing text on
		bRect := image.Rect(centerX-textSize.X/2-style.LeftPad,
			box.Min.Y-textSize.Y-style.TopPad-style.BottomPad,
			centerX+textSize.X/2+style.RightPad, box.Min.Y)

		// move labels that would be cut off by the top of the image inside
		// the detection box
		if bRect.Min.Y < 0 {
			shift := image.Pt(0, bRect.Dy())
			bRect = bRect.Add(shift)
			labelPosition = labelPosition.Add(shift)
		}

		textClr := style.Color

		if style.AutoContrast {
			textClr = ContrastColor(useClr)
		}

		boxLabels = append(boxLabels, boxLabel{
			index:   i,
			rect:    bRect,
			clr:     useClr,
			textClr: textClr,
			text:    text,
			textPos: labelPosition,
		})
	}

	return boxLabels
}

// textSize returns the width and height above the baseline of the rendered
// text
func (l LabelAnnotator) textSize(text string) image.Point {

	if l.TTF != nil {
		return image.Pt(
			font.MeasureString(l.TTF, text).Ceil(),
			l.TTF.Metrics().Ascent.Ceil(),
		)
	}

	return gocv.GetTextSize(text, l.Font.Face, l.Font.Scale, l.Font.Thickness)
}

// drawTTF writes the label text with the TTF face onto a transparent layer
// and blends it over img
func (l LabelAnnotator) drawTTF(img *gocv.Mat, boxLabels []boxLabel) error {

	width := img.Cols()
	height := img.Rows()

	layer := image.NewRGBA(image.Rect(0, 0, width, height))

	for _, box := range boxLabels {
		dr := &font.Drawer{
			Dst:  layer,
			Src:  image.NewUniform(box.textClr),
			Face: l.TTF,
			Dot:  fixed.P(box.textPos.X, box.textPos.Y),
		}
		dr.DrawString(box.text)
	}

	imgData := img.ToBytes()

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {

			off := layer.PixOffset(x, y)
			a := layer.Pix[off+3]

			if a == 0 {
				continue
			}

			// layer colors are alpha premultiplied
			alpha := float32(a) / 255
			pixelPos := (y*width + x) * 3

			imgData[pixelPos+0] = over(imgData[pixelPos+0], layer.Pix[off+2], alpha)
			imgData[pixelPos+1] = over(imgData[pixelPos+1], layer.Pix[off+1], alpha)
			imgData[pixelPos+2] = over(imgData[pixelPos+2], layer.Pix[off+0], alpha)
		}
	}

	return copyBytesTo(img, imgData)
}

// over composites a premultiplied value over the base value
func over(base, premul uint8, alpha float32) uint8 {

	v := float32(base)*(1-alpha) + float32(premul) + 0.5

	if v > 255 {
		return 255
	}

	return uint8(v)
}

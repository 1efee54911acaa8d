package adapter

import (
	"github.com/swdee/go-annotate"
)

// Letterbox holds the scaling parameters used when a source image was
// resized to the model input size whilst maintaining its aspect ratio and
// padded with borders.  It is used to map model coordinates back to source
// image pixels.
type Letterbox struct {
	// srcWidth and srcHeight are the source image dimensions
	srcWidth  int
	srcHeight int
	// destWidth and destHeight are the model input dimensions
	destWidth  int
	destHeight int
	// letterbox parameters used in scaling
	xPad  int
	yPad  int
	scale float32
}

// NewLetterbox calculates the letterbox parameters for resizing an image of
// srcWidth x srcHeight to the model input size of destWidth x destHeight
func NewLetterbox(srcWidth, srcHeight, destWidth, destHeight int) Letterbox {

	lb := Letterbox{
		srcWidth:   srcWidth,
		srcHeight:  srcHeight,
		destWidth:  destWidth,
		destHeight: destHeight,
	}

	if srcWidth <= 0 || srcHeight <= 0 || destWidth <= 0 || destHeight <= 0 {
		return lb
	}

	resizeW := destWidth
	resizeH := destHeight

	scaleW := float32(destWidth) / float32(srcWidth)
	scaleH := float32(destHeight) / float32(srcHeight)
	lb.scale = scaleH

	if scaleW < scaleH {
		lb.scale = scaleW
		resizeH = int(float32(srcHeight) * lb.scale)
	} else {
		resizeW = int(float32(srcWidth) * lb.scale)
	}

	lb.yPad = (destHeight - resizeH) / 2
	lb.xPad = (destWidth - resizeW) / 2

	return lb
}

// Identity returns parameters for model output that is already in source
// image pixels
func Identity(srcWidth, srcHeight int) Letterbox {
	return Letterbox{
		srcWidth:   srcWidth,
		srcHeight:  srcHeight,
		destWidth:  srcWidth,
		destHeight: srcHeight,
		scale:      1,
	}
}

// ScaleFactor returns the scale factor used in letterbox resize
func (l Letterbox) ScaleFactor() float32 {
	return l.scale
}

// XPad returns the x padding used in letterbox resize
func (l Letterbox) XPad() int {
	return l.xPad
}

// YPad returns the y padding used in letterbox resize
func (l Letterbox) YPad() int {
	return l.yPad
}

// SrcWidth returns the width of the source image
func (l Letterbox) SrcWidth() int {
	return l.srcWidth
}

// SrcHeight returns the height of the source image
func (l Letterbox) SrcHeight() int {
	return l.srcHeight
}

// valid reports whether the letterbox was created with usable dimensions
func (l Letterbox) valid() bool {
	return l.scale > 0 && l.srcWidth > 0 && l.srcHeight > 0
}

// Reverse maps a box in model input coordinates back to source image pixels
// and clips it to the source image
func (l Letterbox) Reverse(b annotate.Box) annotate.Box {

	x1 := (b.X1() - float32(l.xPad)) / l.scale
	y1 := (b.Y1() - float32(l.yPad)) / l.scale
	x2 := (b.X2() - float32(l.xPad)) / l.scale
	y2 := (b.Y2() - float32(l.yPad)) / l.scale

	return annotate.Box{x1, y1, x2, y2}.Clip(l.srcWidth, l.srcHeight)
}

package adapter

import (
	clipper "github.com/ctessum/go.clipper"
	"github.com/swdee/go-annotate"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
	"image"
)

const (
	// polyScale is the fixed point scale used when converting float polygon
	// coordinates to Clipper's integer coordinates
	polyScale = 256
	// maskThreshold is the rasterised coverage a pixel needs to be included
	// in the mask
	maskThreshold = 128
)

// ClipPolygon clips the polygon to the rectangle of an image with the given
// dimensions.  Clipping can split a polygon so several polygons may be
// returned, none if the polygon lies outside the image.
func ClipPolygon(points [][2]float32, width, height int) [][][2]float32 {

	if len(points) < 3 {
		return nil
	}

	var subject clipper.Path

	for _, pt := range points {
		subject = append(subject, &clipper.IntPoint{
			X: clipper.CInt(pt[0] * polyScale),
			Y: clipper.CInt(pt[1] * polyScale),
		})
	}

	w := clipper.CInt(width * polyScale)
	h := clipper.CInt(height * polyScale)

	bounds := clipper.Path{
		&clipper.IntPoint{X: 0, Y: 0},
		&clipper.IntPoint{X: w, Y: 0},
		&clipper.IntPoint{X: w, Y: h},
		&clipper.IntPoint{X: 0, Y: h},
	}

	c := clipper.NewClipper(clipper.IoNone)
	c.AddPath(subject, clipper.PtSubject, true)
	c.AddPath(bounds, clipper.PtClip, true)

	solution, ok := c.Execute1(clipper.CtIntersection, clipper.PftNonZero,
		clipper.PftNonZero)

	if !ok {
		return nil
	}

	polys := make([][][2]float32, 0, len(solution))

	for _, path := range solution {

		if len(path) < 3 {
			continue
		}

		poly := make([][2]float32, len(path))

		for i, pt := range path {
			poly[i] = [2]float32{
				float32(pt.X) / polyScale,
				float32(pt.Y) / polyScale,
			}
		}

		polys = append(polys, poly)
	}

	if len(polys) == 0 {
		return nil
	}

	return polys
}

// PolygonToMask rasterises a polygon outline given in source image pixels
// into a binary mask of the given dimensions.  Parts of the polygon outside
// the image are clipped away.
func PolygonToMask(points [][2]float32, width, height int) *annotate.Mask {

	polys := ClipPolygon(points, width, height)

	if len(polys) == 0 {
		return annotate.NewMask(width, height)
	}

	z := vector.NewRasterizer(width, height)

	for _, poly := range polys {
		z.MoveTo(poly[0][0], poly[0][1])

		for _, pt := range poly[1:] {
			z.LineTo(pt[0], pt[1])
		}

		z.ClosePath()
	}

	coverage := image.NewAlpha(image.Rect(0, 0, width, height))
	z.Draw(coverage, coverage.Bounds(), image.Opaque, image.Point{})

	return annotate.MaskFromAlpha(coverage, maskThreshold)
}

// resizeMask scales a mask to the given dimensions using nearest neighbour
// sampling so the result stays binary
func resizeMask(m *annotate.Mask, width, height int) *annotate.Mask {

	if m.Width() == width && m.Height() == height {
		return m
	}

	dst := image.NewAlpha(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), m.Alpha, m.Bounds(), draw.Src, nil)

	return annotate.MaskFromAlpha(dst, 1)
}

package annotate

import (
	"gonum.org/v1/gonum/mat"
	"sort"
)

// BoxIoUBatch computes the Intersection over Union between every box in a and
// every box in b.  The result is a len(a) x len(b) matrix.
func BoxIoUBatch(a, b []Box) *mat.Dense {

	if len(a) == 0 || len(b) == 0 {
		return &mat.Dense{}
	}

	iou := mat.NewDense(len(a), len(b), nil)

	for i := range a {
		for j := range b {
			iou.Set(i, j, float64(a[i].IoU(b[j])))
		}
	}

	return iou
}

// NonMaxSuppression removes overlapping detections.  Detections are visited
// in order of descending confidence and any later detection whose IoU with a
// kept detection exceeds threshold is dropped.  Unless classAgnostic is set
// only detections of the same class suppress each other.
func (d *Detections) NonMaxSuppression(threshold float32, classAgnostic bool) *Detections {

	n := d.Len()

	if n == 0 {
		return d.Filter(func(int) bool { return false })
	}

	// order holds detection indices sorted by confidence, suppressed entries
	// are marked with -1
	order := make([]int, n)

	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return d.Confidence[order[a]] > d.Confidence[order[b]]
	})

	iou := BoxIoUBatch(d.XYXY, d.XYXY)

	for i := 0; i < n; i++ {

		if order[i] == -1 {
			continue
		}

		keep := order[i]

		for j := i + 1; j < n; j++ {
			m := order[j]

			if m == -1 {
				continue
			}

			if !classAgnostic && d.ClassID[m] != d.ClassID[keep] {
				continue
			}

			if float32(iou.At(keep, m)) > threshold {
				order[j] = -1
			}
		}
	}

	kept := make([]int, 0, n)

	for _, idx := range order {
		if idx != -1 {
			kept = append(kept, idx)
		}
	}

	// kept indices are always valid
	out, _ := d.Select(kept)
	return out
}

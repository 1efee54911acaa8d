/*
Package adapter converts the predictions returned by model serving frameworks
into annotate.Detections records.

Each framework gets a result type mirroring its serialised output, so a result
can be decoded straight from the JSON the framework produces, and a From
function converting it.  Detection only and segmentation results are both
supported, polygon outlines are rasterised into masks the size of the source
image.
*/
package adapter

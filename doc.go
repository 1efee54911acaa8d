/*
go-annotate takes the predictions returned by object detection and instance
segmentation models, normalises them into a single Detections record and
renders them onto images.

Models are served by many different frameworks which all describe their
results differently.  The adapter subpackage converts the output of
Ultralytics, Roboflow Inference and Hugging Face Transformers, as well as raw
YOLOv8 output tensors, into Detections.  The render subpackage draws bounding
boxes, segment masks, outlines and text labels for a Detections record onto a
copy of the source image using GoCV.

Large images can be split into overlapping tiles with a Slicer, with the
detections of each tile merged back into source image coordinates.

See example code and usage in the example subdirectory.
*/
package annotate

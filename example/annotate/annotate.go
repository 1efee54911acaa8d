package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"github.com/disintegration/imaging"
	"github.com/swdee/go-annotate"
	"github.com/swdee/go-annotate/adapter"
	"github.com/swdee/go-annotate/render"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
	"log"
	"os"
	"strings"
	"time"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	imgFile := flag.String("i", "../data/catdog.jpg", "Image file the predictions were made on")
	predFile := flag.String("d", "../data/catdog-ultralytics.json", "JSON file containing the saved model predictions")
	format := flag.String("f", "ultralytics", "Format of the predictions file [ultralytics|inference|transformers|transformers-seg|pipeline|yolov8]")
	labelFile := flag.String("l", "", "Optional text file containing model labels, overrides the names in the predictions")
	saveFile := flag.String("o", "../data/catdog-annotated.jpg", "The output image file with annotations")
	renderFormat := flag.String("r", "box", "The rendering format used [box|mask|outline|dump]")
	minConf := flag.Float64("c", 0, "Minimum confidence score of predictions to draw")
	modelSize := flag.Int("s", 640, "Model input size used for yolov8 tensor predictions")
	paletteHex := flag.String("palette", "", "Optional comma separated list of hex colors to use")
	ttfFile := flag.String("ttf", "", "Optional TTF font file for drawing labels")
	maxWidth := flag.Int("w", 0, "Scale the output image down to this width, 0 keeps the source size")
	verbose := flag.Bool("v", false, "Log adapter debug messages")

	flag.Parse()

	logger := zap.NewNop()

	if *verbose {
		var err error
		logger, err = zap.NewDevelopment()

		if err != nil {
			log.Fatal("Error creating logger: ", err)
		}

		defer logger.Sync()
	}

	// load image applying any EXIF orientation so predictions line up with
	// what the model saw
	srcImg, err := imaging.Open(*imgFile, imaging.AutoOrientation(true))

	if err != nil {
		log.Fatal("Error reading image: ", err)
	}

	img, err := gocv.ImageToMatRGB(srcImg)

	if err != nil {
		log.Fatal("Error converting image: ", err)
	}

	defer img.Close()

	opts := adapter.Options{
		Logger:        logger,
		MinConfidence: float32(*minConf),
	}

	var classNames []string

	if *labelFile != "" {
		classNames, err = annotate.LoadLabels(*labelFile)

		if err != nil {
			log.Fatal("Error loading model labels: ", err)
		}

		opts.ClassNames = classNames
	}

	data, err := os.ReadFile(*predFile)

	if err != nil {
		log.Fatal("Error reading predictions: ", err)
	}

	start := time.Now()

	dets, err := convert(*format, data, img.Cols(), img.Rows(), *modelSize,
		classNames, opts)

	if err != nil {
		log.Fatal("Error converting predictions: ", err)
	}

	endConvert := time.Now()

	palette := render.DefaultPalette()

	if *paletteHex != "" {
		palette, err = render.PaletteFromHex(strings.Split(*paletteHex, ",")...)

		if err != nil {
			log.Fatal("Error parsing palette: ", err)
		}
	}

	labels := render.DefaultLabelAnnotator()
	labels.Palette = palette

	if *ttfFile != "" {
		labels.TTF, err = render.LoadTTF(*ttfFile, 16)

		if err != nil {
			log.Fatal("Error loading font: ", err)
		}
	}

	boxes := render.DefaultBoxAnnotator()
	boxes.Palette = palette

	var annotator render.Annotator
	scene := img

	switch *renderFormat {
	case "mask":
		masks := render.DefaultMaskAnnotator()
		masks.Palette = palette
		annotator = render.Compose(masks, boxes, labels)

	case "outline":
		outlines := render.DefaultPolygonAnnotator()
		outlines.Palette = palette
		annotator = render.Compose(outlines, labels)

	case "dump":
		// paint only the solid segmentation masks onto a black image
		annotator = render.MaskAnnotator{Opacity: 1, Palette: palette}

		blank := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0),
			img.Rows(), img.Cols(), gocv.MatTypeCV8UC3)
		defer blank.Close()
		scene = blank

	case "box":
		fallthrough
	default:
		annotator = render.Compose(boxes, labels)
	}

	out, err := annotator.Annotate(scene, dets)

	if err != nil {
		log.Fatal("Error annotating image: ", err)
	}

	defer out.Close()

	endRendering := time.Now()

	// output detection boxes to stdout
	for i, box := range dets.XYXY {
		fmt.Printf("%s @ (%.0f %.0f %.0f %.0f) %f\n", dets.Label(i),
			box.X1(), box.Y1(), box.X2(), box.Y2(), dets.Confidence[i])
	}

	log.Printf("Annotated %d detections: convert=%s, rendering=%s\n", dets.Len(),
		endConvert.Sub(start).String(),
		endRendering.Sub(endConvert).String(),
	)

	res, err := out.ToImage()

	if err != nil {
		log.Fatal("Error converting result: ", err)
	}

	if *maxWidth > 0 && res.Bounds().Dx() > *maxWidth {
		res = imaging.Resize(res, *maxWidth, 0, imaging.Lanczos)
	}

	if err := imaging.Save(res, *saveFile); err != nil {
		log.Fatal("Failed to save the image: ", err)
	}

	log.Printf("Saved annotated result to %s\n", *saveFile)
}

// convert runs the adapter for the given prediction format
func convert(format string, data []byte, width, height, modelSize int,
	classNames []string, opts adapter.Options) (*annotate.Detections, error) {

	switch format {
	case "ultralytics":
		// Results attributes are saved as an object, to_json() as a list
		if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
			return adapter.ParseUltralyticsJSON(bytes.NewReader(data), width, height, opts)
		}

		var r adapter.UltralyticsResult

		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("error decoding ultralytics json: %w", err)
		}

		return adapter.FromUltralytics(r, opts)

	case "inference":
		return adapter.ParseInferenceJSON(bytes.NewReader(data), opts)

	case "transformers":
		return adapter.ParseTransformersJSON(bytes.NewReader(data), id2label(classNames), opts)

	case "transformers-seg":
		return adapter.ParseTransformersSegmentationJSON(bytes.NewReader(data),
			id2label(classNames), width, height, opts)

	case "pipeline":
		var entries []adapter.TransformersPipelineResult

		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("error decoding pipeline json: %w", err)
		}

		return adapter.FromTransformersPipeline(entries, label2id(classNames), opts)

	case "yolov8":
		var t adapter.Tensor

		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("error decoding tensor json: %w", err)
		}

		lb := adapter.NewLetterbox(width, height, modelSize, modelSize)
		p := adapter.YOLOv8COCOParams()

		if len(t.Shape) == 3 {
			// class count is implied by the attribute dimension
			if attrs := min(t.Shape[1], t.Shape[2]); attrs > 4 {
				p.ObjectClassNum = attrs - 4
			}
		}

		return adapter.FromYOLOv8(t, lb, p, opts)
	}

	return nil, fmt.Errorf("unknown prediction format %q", format)
}

// id2label builds the Transformers label mapping from a labels file
func id2label(classNames []string) map[int]string {

	if classNames == nil {
		return nil
	}

	m := make(map[int]string, len(classNames))

	for i, name := range classNames {
		m[i] = name
	}

	return m
}

// label2id is the reverse of id2label
func label2id(classNames []string) map[string]int {

	if classNames == nil {
		return nil
	}

	m := make(map[string]int, len(classNames))

	for i, name := range classNames {
		m[name] = i
	}

	return m
}

package annotate

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLabels reads the class names a Model was trained on from the given
// text file.  It should contain one label per line, the line number being the
// class ID.  Trailing blank lines are ignored.
func LoadLabels(file string) ([]string, error) {

	// open the file
	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	// create a scanner to read the file.
	scanner := bufio.NewScanner(f)

	var labels []string

	// read and trim each line
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		labels = append(labels, line)
	}

	// check for errors during scanning
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}

	return labels, nil
}

// WithClassNames returns a copy of the record with ClassName filled in from
// the labels list, class IDs outside the list are named by their ID
func (d *Detections) WithClassNames(labels []string) *Detections {

	out := *d
	out.ClassName = make([]string, len(d.ClassID))

	for i, id := range d.ClassID {
		if id >= 0 && id < len(labels) {
			out.ClassName[i] = labels[id]
			continue
		}
		out.ClassName[i] = fmt.Sprintf("%d", id)
	}

	return &out
}

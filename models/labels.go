package models

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// DefaultLabels is used when the label asset is missing or unreadable.
var DefaultLabels = []string{"Person", "car", "bicycle", "dog"}

// LabelTable is the ordered class-name table of a model. Index i names
// output channel 4+i.
type LabelTable struct {
	labels []string
}

// NewLabelTable copies labels into an immutable table.
func NewLabelTable(labels []string) LabelTable {
	return LabelTable{labels: append([]string(nil), labels...)}
}

// DefaultLabelTable returns the fallback table.
func DefaultLabelTable() LabelTable {
	return NewLabelTable(DefaultLabels)
}

// ReadLabels parses one label per line. Lines are trimmed and blank lines
// are skipped; order is preserved.
//
// Arguments:
//   - r: The label file contents.
//
// Returns:
//   - LabelTable: The parsed table.
//   - error: An error if reading fails or no labels are present.
//
// @example
// table, err := ReadLabels(strings.NewReader("Person\ncar\n\ndog\n"))
// // table.Len() == 3
func ReadLabels(r io.Reader) (LabelTable, error) {
	var labels []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return LabelTable{}, errors.Wrap(err, "reading labels")
	}
	if len(labels) == 0 {
		return LabelTable{}, errors.New("label file contains no labels")
	}
	return LabelTable{labels: labels}, nil
}

// Len returns the number of classes.
func (t LabelTable) Len() int {
	return len(t.labels)
}

// Name returns the label for a class index, or "unknown_<idx>" when the
// index is outside the table.
func (t LabelTable) Name(idx int) string {
	if idx >= 0 && idx < len(t.labels) {
		return t.labels[idx]
	}
	return fmt.Sprintf("unknown_%d", idx)
}

// Labels returns a copy of the table contents.
func (t LabelTable) Labels() []string {
	return append([]string(nil), t.labels...)
}

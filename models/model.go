// Package models - Class tables, label tables and asset names for the thermal detector model.
package models

const (
	// DefaultModelFile is the asset name of the detector model.
	DefaultModelFile = "thermal_detector.onnx"
	// DefaultLabelFile is the asset name of the companion label list.
	DefaultLabelFile = "labels.txt"
)

package models

// ObjectClassInfo pairs a raw model label with the real-world height used
// to infer distance from its apparent size.
type ObjectClassInfo struct {
	// The canonical class name as emitted by the model.
	Label string `json:"label" yaml:"label"`
	// Assumed real-world height of the object in meters.
	ReferenceHeightMeters float32 `json:"reference_height_meters" yaml:"reference_height_meters"`
}

// ObjectClasses is the static reference-height table. Lookup is an exact,
// case-sensitive match on the raw label.
var ObjectClasses = []ObjectClassInfo{
	{Label: "Person", ReferenceHeightMeters: 1.7},
	{Label: "car", ReferenceHeightMeters: 1.5},
	{Label: "truck", ReferenceHeightMeters: 3.0},
	{Label: "bus", ReferenceHeightMeters: 3.2},
	{Label: "bicycle", ReferenceHeightMeters: 1.1},
	{Label: "motorcycle", ReferenceHeightMeters: 1.2},
	{Label: "dog", ReferenceHeightMeters: 0.6},
	{Label: "cat", ReferenceHeightMeters: 0.3},
	{Label: "horse", ReferenceHeightMeters: 1.6},
	{Label: "cow", ReferenceHeightMeters: 1.5},
	{Label: "sheep", ReferenceHeightMeters: 0.9},
	{Label: "bear", ReferenceHeightMeters: 1.0},
}

var referenceHeights = func() map[string]float32 {
	m := make(map[string]float32, len(ObjectClasses))
	for _, c := range ObjectClasses {
		m[c.Label] = c.ReferenceHeightMeters
	}
	return m
}()

// ReferenceHeight returns the reference height for a raw label.
//
// Arguments:
//   - label: The raw model label.
//
// Returns:
//   - float32: The height in meters.
//   - bool: False if the label has no reference height.
func ReferenceHeight(label string) (float32, bool) {
	h, ok := referenceHeights[label]
	return h, ok
}

// Display groups shown to the user.
const (
	GroupPerson  = "Person"
	GroupVehicle = "Vehicle"
	GroupBicycle = "Bicycle"
	GroupAnimal  = "Animal"
)

const (
	// thresholdLenient applies to people and animals.
	thresholdLenient float32 = 0.45
	// thresholdStrict applies to vehicles, bicycles and ungrouped labels.
	thresholdStrict float32 = 0.50
)

// ClassGroup is a coarse display grouping with its own confidence floor.
type ClassGroup struct {
	// DisplayLabel is the user-facing label.
	DisplayLabel string
	// MinConfidence is the inclusive lower bound on the winning class score.
	MinConfidence float32
}

var classGroups = map[string]ClassGroup{
	"Person":     {DisplayLabel: GroupPerson, MinConfidence: thresholdLenient},
	"car":        {DisplayLabel: GroupVehicle, MinConfidence: thresholdStrict},
	"truck":      {DisplayLabel: GroupVehicle, MinConfidence: thresholdStrict},
	"bus":        {DisplayLabel: GroupVehicle, MinConfidence: thresholdStrict},
	"bicycle":    {DisplayLabel: GroupBicycle, MinConfidence: thresholdStrict},
	"motorcycle": {DisplayLabel: GroupBicycle, MinConfidence: thresholdStrict},
	"dog":        {DisplayLabel: GroupAnimal, MinConfidence: thresholdLenient},
	"cat":        {DisplayLabel: GroupAnimal, MinConfidence: thresholdLenient},
	"horse":      {DisplayLabel: GroupAnimal, MinConfidence: thresholdLenient},
	"cow":        {DisplayLabel: GroupAnimal, MinConfidence: thresholdLenient},
	"sheep":      {DisplayLabel: GroupAnimal, MinConfidence: thresholdLenient},
	"bear":       {DisplayLabel: GroupAnimal, MinConfidence: thresholdLenient},
}

// ClassGroupFor maps a raw label to its display group and threshold.
// Labels outside the known groups keep their raw name and the strict
// threshold.
//
// Arguments:
//   - raw: The raw model label (case-sensitive).
//
// Returns:
//   - ClassGroup: The display label and minimum confidence.
//
// @example
// g := ClassGroupFor("truck") // {Vehicle 0.5}
func ClassGroupFor(raw string) ClassGroup {
	if g, ok := classGroups[raw]; ok {
		return g
	}
	return ClassGroup{DisplayLabel: raw, MinConfidence: thresholdStrict}
}

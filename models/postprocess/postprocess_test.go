package postprocess

import (
	"testing"

	"github.com/nvr-ai/go-thermal/images"
	"github.com/nvr-ai/go-thermal/inference"
	"github.com/nvr-ai/go-thermal/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

// anchor describes one synthetic anchor in the 640x640 input space.
type anchor struct {
	idx          int
	cx, cy, w, h float32
	scores       []float32
}

func newOutput(t *testing.T, numClasses int, anchors ...anchor) *tensor.Dense {
	t.Helper()
	n := inference.NumAnchors
	data := make([]float32, (inference.BoxChannels+numClasses)*n)
	for _, a := range anchors {
		require.Len(t, a.scores, numClasses)
		data[a.idx] = a.cx
		data[n+a.idx] = a.cy
		data[2*n+a.idx] = a.w
		data[3*n+a.idx] = a.h
		for c, s := range a.scores {
			data[(inference.BoxChannels+c)*n+a.idx] = s
		}
	}
	return tensor.New(tensor.WithShape(inference.OutputShape(numClasses)...), tensor.WithBacking(data))
}

func TestDecode_ThresholdGating(t *testing.T) {
	labels := models.DefaultLabelTable()
	out := newOutput(t, 4,
		anchor{idx: 0, cx: 320, cy: 320, w: 100, h: 100, scores: []float32{0.44, 0, 0, 0}},
		anchor{idx: 1, cx: 320, cy: 320, w: 100, h: 100, scores: []float32{0.45, 0, 0, 0}},
		anchor{idx: 2, cx: 320, cy: 320, w: 100, h: 100, scores: []float32{0, 0.49, 0, 0}},
		anchor{idx: 3, cx: 320, cy: 320, w: 100, h: 100, scores: []float32{0, 0.5, 0, 0}},
		anchor{idx: 4, cx: 320, cy: 320, w: 100, h: 100, scores: []float32{0, 0, 0, 0.45}},
	)

	results, err := Decode(out, labels, 640, 640)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "Person", results[0].DisplayLabel)
	assert.Equal(t, float32(0.45), results[0].Score)
	assert.Equal(t, "Vehicle", results[1].DisplayLabel)
	assert.Equal(t, "car", results[1].Label)
	assert.Equal(t, "Animal", results[2].DisplayLabel)
	assert.Equal(t, "dog", results[2].Label)
}

func TestDecode_SizeFloor(t *testing.T) {
	labels := models.DefaultLabelTable()
	person := []float32{0.9, 0, 0, 0}
	out := newOutput(t, 4,
		anchor{idx: 10, cx: 320, cy: 320, w: 49, h: 100, scores: person},
		anchor{idx: 11, cx: 320, cy: 320, w: 50, h: 100, scores: person},
		anchor{idx: 12, cx: 320.5, cy: 320, w: 51, h: 100, scores: person},
		anchor{idx: 13, cx: 320, cy: 320, w: 100, h: 50, scores: person},
		anchor{idx: 14, cx: 320, cy: 320, w: -100, h: 100, scores: person},
	)

	results, err := Decode(out, labels, 640, 640)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 51, results[0].Box.Width(), 1e-3)
}

func TestDecode_ScalesToOriginal(t *testing.T) {
	labels := models.DefaultLabelTable()
	out := newOutput(t, 4,
		anchor{idx: 8399, cx: 320, cy: 160, w: 128, h: 64, scores: []float32{0.8, 0, 0, 0}},
	)

	results, err := Decode(out, labels, 1280, 960)
	require.NoError(t, err)
	require.Len(t, results, 1)

	want := images.Rect{X1: 512, Y1: 192, X2: 768, Y2: 288}
	got := results[0].Box
	assert.InDelta(t, want.X1, got.X1, 1e-3)
	assert.InDelta(t, want.Y1, got.Y1, 1e-3)
	assert.InDelta(t, want.X2, got.X2, 1e-3)
	assert.InDelta(t, want.Y2, got.Y2, 1e-3)
	assert.Equal(t, 0, results[0].Class)
}

func TestDecode_AllZeroAndUnknown(t *testing.T) {
	labels := models.NewLabelTable([]string{"Person"})
	out := newOutput(t, 3,
		anchor{idx: 0, cx: 320, cy: 320, w: 100, h: 100, scores: []float32{0, 0, 0}},
		anchor{idx: 1, cx: 320, cy: 320, w: 100, h: 100, scores: []float32{0.1, 0.2, 0.7}},
	)

	results, err := Decode(out, labels, 640, 640)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "unknown_2", results[0].Label)
	assert.Equal(t, "unknown_2", results[0].DisplayLabel)
}

func TestDecode_TieGoesToFirstClass(t *testing.T) {
	out := newOutput(t, 4,
		anchor{idx: 0, cx: 320, cy: 320, w: 100, h: 100, scores: []float32{0, 0.6, 0.6, 0}},
	)
	results, err := Decode(out, models.DefaultLabelTable(), 640, 640)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "car", results[0].Label)
}

func TestDecode_BadShape(t *testing.T) {
	bad := tensor.New(tensor.WithShape(1, 8, 100), tensor.Of(tensor.Float32))
	_, err := Decode(bad, models.DefaultLabelTable(), 640, 640)
	assert.True(t, errors.Is(err, inference.ErrShapeMismatch))

	_, err = Decode(newOutput(t, 4), models.DefaultLabelTable(), 0, 640)
	assert.Error(t, err)
}

func TestApplyGreedyNMS_Suppression(t *testing.T) {
	a := Result{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.8, Class: 0}
	// IoU with a is 90/100.
	b := Result{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 90}, Score: 0.9, Class: 0}
	require.InDelta(t, 0.9, images.CalculateIoU(a.Box, b.Box), 1e-6)

	kept := ApplyGreedyNMS([]Result{a, b}, DefaultNMSConfig())
	require.Len(t, kept, 1)
	assert.Equal(t, float32(0.9), kept[0].Score)
}

func TestApplyGreedyNMS_CrossClass(t *testing.T) {
	person := Result{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.6, Class: 0, DisplayLabel: "Person"}
	// Overlap 66.67 x 100 over union 133.33 x 100 gives IoU 0.5.
	vehicle := Result{Box: images.Rect{X1: 33.333333, Y1: 0, X2: 133.33333, Y2: 100}, Score: 0.5, Class: 1, DisplayLabel: "Vehicle"}
	require.InDelta(t, 0.5, images.CalculateIoU(person.Box, vehicle.Box), 1e-3)

	kept := ApplyGreedyNMS([]Result{vehicle, person}, DefaultNMSConfig())
	require.Len(t, kept, 1)
	assert.Equal(t, "Person", kept[0].DisplayLabel)

	aware := DefaultNMSConfig()
	aware.ClassAware = true
	assert.Len(t, ApplyGreedyNMS([]Result{vehicle, person}, aware), 2)
}

func TestApplyGreedyNMS_Chain(t *testing.T) {
	// b overlaps a and c, a and c do not overlap: suppressing b keeps c.
	a := Result{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.9}
	b := Result{Box: images.Rect{X1: 20, Y1: 0, X2: 120, Y2: 100}, Score: 0.8}
	c := Result{Box: images.Rect{X1: 110, Y1: 0, X2: 210, Y2: 100}, Score: 0.7}

	kept := ApplyGreedyNMS([]Result{c, b, a}, DefaultNMSConfig())
	require.Len(t, kept, 2)
	assert.Equal(t, float32(0.9), kept[0].Score)
	assert.Equal(t, float32(0.7), kept[1].Score)

	for i := range kept {
		for j := i + 1; j < len(kept); j++ {
			assert.LessOrEqual(t, images.CalculateIoU(kept[i].Box, kept[j].Box), float32(DefaultIoUThreshold))
		}
	}
}

func TestApplyGreedyNMS_Empty(t *testing.T) {
	kept := ApplyGreedyNMS(nil, DefaultNMSConfig())
	assert.NotNil(t, kept)
	assert.Empty(t, kept)
}

func TestTopK(t *testing.T) {
	var in []Result
	for i := 0; i < 10; i++ {
		x := float32(i * 200)
		in = append(in, Result{
			Box:   images.Rect{X1: x, Y1: 0, X2: x + 100, Y2: 100},
			Score: 0.5 + float32(i)*0.04,
		})
	}

	kept := ApplyGreedyNMS(in, DefaultNMSConfig())
	require.Len(t, kept, 10)

	top := TopK(kept, DefaultMaxResults)
	require.Len(t, top, 5)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Score, top[i].Score)
	}
	assert.InDelta(t, 0.86, top[0].Score, 1e-6)

	assert.Len(t, TopK(in[:3], DefaultMaxResults), 3)
}

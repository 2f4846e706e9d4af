package postprocess

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/nvr-ai/go-thermal/images"
)

func randomResults(n int) []Result {
	rng := rand.New(rand.NewSource(42))
	out := make([]Result, n)
	for i := range out {
		x, y := rng.Float32()*1800, rng.Float32()*960
		out[i] = Result{
			Box:   images.Rect{X1: x, Y1: y, X2: x + 60 + rng.Float32()*60, Y2: y + 60 + rng.Float32()*60},
			Score: 0.45 + rng.Float32()*0.55,
			Class: rng.Intn(4),
		}
	}
	return out
}

// BenchmarkApplyGreedyNMS measures suppression over candidate counts seen
// on busy and quiet frames.
func BenchmarkApplyGreedyNMS(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		detections := randomResults(n)
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = ApplyGreedyNMS(detections, DefaultNMSConfig())
			}
		})
	}
}

// TestApplyGreedyNMS_MatchesPairwise checks the indexed walk against the
// plain all-pairs greedy walk.
func TestApplyGreedyNMS_MatchesPairwise(t *testing.T) {
	detections := randomResults(500)
	got := ApplyGreedyNMS(detections, DefaultNMSConfig())

	sorted := make([]Result, len(detections))
	copy(sorted, detections)
	SortByScore(sorted)
	suppressed := make([]bool, len(sorted))
	var want []Result
	for i := range sorted {
		if suppressed[i] {
			continue
		}
		want = append(want, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if images.CalculateIoU(sorted[i].Box, sorted[j].Box) > DefaultIoUThreshold {
				suppressed[j] = true
			}
		}
	}

	if len(got) != len(want) {
		t.Fatalf("kept %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("result %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

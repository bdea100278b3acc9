package scoring

import (
	"math"
	"testing"
)

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMinMaxInverse(t *testing.T) {
	got := MinMaxInverse([]float64{15, 12, 18})
	want := []float64{0.5, 1, 0}
	for i := range want {
		if !almost(got[i], want[i]) {
			t.Fatalf("score[%d]=%v want=%v", i, got[i], want[i])
		}
	}
}

func TestMinMaxInverse_AllEqual(t *testing.T) {
	got := MinMaxInverse([]float64{4, 4, 4})
	for i, v := range got {
		if v != 0 || math.IsNaN(v) {
			t.Fatalf("score[%d]=%v want=0", i, v)
		}
	}
	if len(MinMaxInverse(nil)) != 0 {
		t.Fatalf("empty input should yield empty output")
	}
}

func TestHaversine(t *testing.T) {
	paris := Point{Lat: 48.8566, Lng: 2.3522}
	london := Point{Lat: 51.5074, Lng: -0.1278}
	d := Haversine(paris, london)
	if d < 340 || d > 345 {
		t.Fatalf("paris-london=%v want~343", d)
	}
	if Haversine(paris, paris) != 0 {
		t.Fatalf("distance to self should be 0")
	}
}

func TestDistanceScore(t *testing.T) {
	cases := []struct {
		km, max, want float64
	}{
		{0, 50, 1},
		{25, 50, 0.5},
		{60, 50, 0},
		{10, 0, 0},
	}
	for _, tc := range cases {
		if got := DistanceScore(tc.km, tc.max); !almost(got, tc.want) {
			t.Fatalf("DistanceScore(%v,%v)=%v want=%v", tc.km, tc.max, got, tc.want)
		}
	}
}

func TestRatioAndClamp(t *testing.T) {
	if got := Ratio(30, 60); !almost(got, 0.5) {
		t.Fatalf("ratio=%v want=0.5", got)
	}
	if got := Ratio(90, 60); got != 1 {
		t.Fatalf("ratio=%v want=1", got)
	}
	if got := Ratio(5, 0); got != 1 {
		t.Fatalf("ratio=%v want=1", got)
	}
	if Clamp01(-0.2) != 0 || Clamp01(1.3) != 1 || Clamp01(math.NaN()) != 0 || Clamp01(0.4) != 0.4 {
		t.Fatalf("clamp mismatch")
	}
}

func TestRound(t *testing.T) {
	if got := Round(0.57749, 3); got != 0.577 {
		t.Fatalf("Round=%v want=0.577", got)
	}
	if got := Round(1.005, 0); got != 1 {
		t.Fatalf("Round=%v want=1", got)
	}
}

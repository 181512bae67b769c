package forecast

import (
	"context"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name   string
		values []float64
		n      int
		fill   float64
		want   []float64
	}{
		{"exact", []float64{1, 2}, 2, 0, []float64{1, 2}},
		{"truncate", []float64{1, 2, 3}, 2, 0, []float64{1, 2}},
		{"pad repeats last", []float64{1, 2}, 4, 0, []float64{1, 2, 2, 2}},
		{"empty uses fill", nil, 3, 7, []float64{7, 7, 7}},
		{"zero n", []float64{1}, 0, 0, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.values, tc.n, tc.fill)
			if len(got) != len(tc.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tc.want))
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("got[%d] = %v, want %v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestStaticProvider(t *testing.T) {
	p := Static([]float64{0.08})
	got, err := p.Forecast(context.Background(), 3)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	for i, v := range got {
		if v != 0.08 {
			t.Fatalf("got[%d] = %v", i, v)
		}
	}
}

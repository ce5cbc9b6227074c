package ringsize

import (
	"math"
	"testing"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSizes(t *testing.T) {
	sizes := Sizes()
	if len(sizes) != 52 {
		t.Fatalf("expected 52 sizes, got %d", len(sizes))
	}
	if sizes[0].Label != "A" || sizes[1].Label != "A 1/2" || sizes[51].Label != "Z 1/2" {
		t.Errorf("unexpected labels: %s %s %s", sizes[0].Label, sizes[1].Label, sizes[51].Label)
	}
	if !near(sizes[1].InnerCircumference, 38.4) {
		t.Errorf("A 1/2 = %v, want 38.4", sizes[1].InnerCircumference)
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in    string
		label string
		circ  float64
	}{
		{"L", "L", 51.9},
		{"l", "L", 51.9},
		{"L 1/2", "L 1/2", 52.5},
		{"p1/2", "P 1/2", 57.6},
		{"Z.5", "Z 1/2", 70.3},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		if err != nil {
			t.Errorf("ParseSize(%q): %v", tt.in, err)
			continue
		}
		if got.Label != tt.label || !near(got.InnerCircumference, tt.circ) {
			t.Errorf("ParseSize(%q) = %+v, want %s %.1f", tt.in, got, tt.label, tt.circ)
		}
	}

	for _, bad := range []string{"", "AA", "1", "L 1/4"} {
		if _, err := ParseSize(bad); err == nil {
			t.Errorf("ParseSize(%q): expected error", bad)
		}
	}
}

func TestArea(t *testing.T) {
	if got := Square.Area(2, 1.5); !near(got, 3) {
		t.Errorf("square = %v", got)
	}
	if got := Round.Area(2, 2); !near(got, math.Pi) {
		t.Errorf("round = %v", got)
	}
	if got := HalfRound.Area(4, 2); !near(got, 2*math.Pi) {
		t.Errorf("half-round = %v", got)
	}
}

func TestCalculate(t *testing.T) {
	size, _ := ParseSize("L")
	b, err := Calculate(size, Square, 2, 1.5, 0)
	if err != nil {
		t.Fatal(err)
	}

	wantLength := 51.9 + math.Pi*1.5
	if !near(b.LengthMM, wantLength) {
		t.Errorf("length = %v, want %v", b.LengthMM, wantLength)
	}
	wantWeight := (3.0 / 100) * (wantLength / 10) * SilverDensity
	if !near(b.WeightG, wantWeight) {
		t.Errorf("weight = %v, want %v", b.WeightG, wantWeight)
	}
}

func TestCalculateErrors(t *testing.T) {
	size, _ := ParseSize("L")
	if _, err := Calculate(size, Round, 0, 1, 0); err == nil {
		t.Error("expected error for zero width")
	}
	if _, err := Calculate(size, Round, 1, 1, -2); err == nil {
		t.Error("expected error for negative density")
	}
}

func TestParseShape(t *testing.T) {
	for in, want := range map[string]Shape{"": Round, "Square": Square, "half-round": HalfRound} {
		got, err := ParseShape(in)
		if err != nil || got != want {
			t.Errorf("ParseShape(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseShape("oval"); err == nil {
		t.Error("expected error")
	}
}

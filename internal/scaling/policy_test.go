package scaling

import "testing"

func TestNewPolicy_Defaults(t *testing.T) {
	p := NewPolicy()
	if p.Thresholds() != DefaultThresholds() {
		t.Errorf("Thresholds() = %+v, want defaults", p.Thresholds())
	}
}

func TestPolicy_Decide(t *testing.T) {
	tests := []struct {
		name       string
		counts     []int
		total      int
		wantAction Action
		wantRule   int
	}{
		{"no groups", nil, 0, ActionHold, 1},
		{"single group", []int{5}, 5, ActionHold, 1},
		{"small population with collapsed group", []int{1, 3, 3}, 7, ActionScaleDown, 2},
		{"small population all singletons", []int{1, 1, 1}, 3, ActionScaleDown, 2},
		{"small population without collapse", []int{2, 2, 2}, 6, ActionHold, 3},
		{"small population collapsed pair", []int{1, 5}, 6, ActionHold, 3},
		{"collapsed group among three", []int{1, 20, 20}, 41, ActionScaleDown, 4},
		{"crowd with sparse group among three", []int{300, 5, 5}, 310, ActionScaleDown, 5},
		{"crowd pair with sparse group", []int{110, 5}, 115, ActionScaleUp, 6},
		{"small pair collapsed", []int{1, 12}, 13, ActionScaleUp, 7},
		{"pair in 20s", []int{3, 20}, 23, ActionScaleUp, 8},
		{"pair over 30", []int{5, 30}, 35, ActionScaleUp, 9},
		{"three groups over 30", []int{2, 2, 30}, 34, ActionScaleUp, 9},
		{"four groups over 50", []int{5, 5, 10, 40}, 60, ActionScaleUp, 10},
		{"even three groups", []int{10, 10, 10}, 30, ActionHold, 0},
		{"small pair not collapsed", []int{2, 12}, 14, ActionHold, 0},
		{"six uneven groups", []int{2, 2, 2, 2, 2, 50}, 60, ActionHold, 0},
	}

	p := NewPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Decide(tt.counts, tt.total)
			if d.Action != tt.wantAction {
				t.Errorf("Action = %s, want %s (reason: %s)", d.Action, tt.wantAction, d.Reason)
			}
			if d.Rule != tt.wantRule {
				t.Errorf("Rule = %d, want %d (reason: %s)", d.Rule, tt.wantRule, d.Reason)
			}
			if d.Reason == "" {
				t.Error("Reason should not be empty")
			}
		})
	}
}

// Thresholds are exclusive for imbalance and for the crowd population, and
// inclusive for the lower bound of each population band.
func TestPolicy_DecideBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		counts     []int
		total      int
		imbalance  float64
		wantAction Action
		wantRule   int
	}{
		{"total 10 small pair at exactly 0.8", []int{1, 9}, 10, 0.8, ActionHold, 0},
		{"total 9 stays in the small band", []int{1, 8}, 9, 7.0 / 9, ActionHold, 3},
		{"total 20 leaves the small pair band", []int{1, 19}, 20, 0.9, ActionScaleUp, 8},
		{"pair in 20s at exactly 0.6", []int{4, 16}, 20, 0.6, ActionHold, 0},
		{"total 30 at exactly 0.6", []int{6, 24}, 30, 0.6, ActionHold, 0},
		{"total 30 above 0.6", []int{5, 25}, 30, 2.0 / 3, ActionScaleUp, 9},
		{"four groups miss the medium rule", []int{2, 2, 2, 34}, 40, 0, ActionHold, 0},
		{"total 50 at exactly 0.6 falls to the large rule", []int{10, 40}, 50, 0.6, ActionScaleUp, 10},
		{"large pair at exactly 0.5", []int{15, 45}, 60, 0.5, ActionHold, 0},
		{"total 100 pair is not a crowd", []int{3, 97}, 100, 0.94, ActionScaleUp, 9},
		{"total 101 pair is a crowd", []int{3, 98}, 101, 95.0 / 101, ActionScaleUp, 6},
		{"total 100 trio is not a crowd", []int{2, 2, 96}, 100, 0, ActionScaleUp, 9},
		{"total 101 trio is a crowd", []int{2, 2, 97}, 101, 0, ActionScaleDown, 5},
		{"crowd pair with group of exactly 10", []int{10, 200}, 210, 190.0 / 210, ActionScaleUp, 9},
	}

	p := NewPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Decide(tt.counts, tt.total)
			if tt.imbalance != 0 && d.Distribution.Imbalance != tt.imbalance {
				t.Fatalf("Imbalance(%v) = %v, want exactly %v", tt.counts, d.Distribution.Imbalance, tt.imbalance)
			}
			if d.Action != tt.wantAction || d.Rule != tt.wantRule {
				t.Errorf("Decide(%v, %d) = %s rule %d, want %s rule %d (reason: %s)",
					tt.counts, tt.total, d.Action, d.Rule, tt.wantAction, tt.wantRule, d.Reason)
			}
		})
	}
}

func TestPolicy_DecideDelta(t *testing.T) {
	p := NewPolicy()

	tests := []struct {
		counts []int
		total  int
		want   int
	}{
		{[]int{110, 5}, 115, 1},
		{[]int{1, 20, 20}, 41, -1},
		{[]int{10, 10, 10}, 30, 0},
	}
	for _, tt := range tests {
		if got := p.Decide(tt.counts, tt.total).Delta; got != tt.want {
			t.Errorf("Decide(%v).Delta = %d, want %d", tt.counts, got, tt.want)
		}
	}
}

func TestPolicy_ScaleDownNeverBelowTwoGroups(t *testing.T) {
	p := NewPolicy()
	for n := 0; n <= 8; n++ {
		for minSize := 0; minSize <= 12; minSize++ {
			for _, big := range []int{minSize, 15, 60, 400} {
				counts := make([]int, n)
				for i := range counts {
					counts[i] = big
				}
				if n > 0 {
					counts[0] = minSize
				}
				d := p.Decide(counts, Total(counts))
				if d.Action == ActionScaleDown && n+d.Delta < 2 {
					t.Fatalf("Decide(%v) scales down to %d groups", counts, n+d.Delta)
				}
			}
		}
	}
}

func TestPolicy_CustomThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.LargeImbalance = 0.99

	p := NewPolicy(WithThresholds(th))
	d := p.Decide([]int{5, 5, 10, 40}, 60)
	if d.Action != ActionHold {
		t.Errorf("Action = %s, want hold with raised large-population threshold", d.Action)
	}

	th = DefaultThresholds()
	th.SmallPopulation = 5
	p = NewPolicy(WithThresholds(th))
	d = p.Decide([]int{2, 2, 2}, 6)
	if d.Rule == 3 {
		t.Error("rule 3 should not fire once the small-population breakpoint is lowered")
	}
}

func TestPolicy_DistributionReported(t *testing.T) {
	d := NewPolicy().Decide([]int{110, 5}, 115)
	if d.Distribution.Groups != 2 || d.Distribution.MinSize != 5 || d.Distribution.Total != 115 {
		t.Errorf("Distribution = %+v", d.Distribution)
	}
	if d.Distribution.Imbalance <= 0.9 {
		t.Errorf("Imbalance = %v, want > 0.9", d.Distribution.Imbalance)
	}
}

func TestAction_String(t *testing.T) {
	tests := map[Action]string{
		ActionScaleUp:   "scale_up",
		ActionScaleDown: "scale_down",
		ActionHold:      "hold",
	}
	for a, want := range tests {
		if a.String() != want {
			t.Errorf("String() = %q, want %q", a.String(), want)
		}
	}
}

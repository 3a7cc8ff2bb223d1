package result

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMemberCounts(t *testing.T) {
	tests := []struct {
		name         string
		participants []Record
		want         []int
	}{
		{
			name:         "no participants",
			participants: nil,
			want:         nil,
		},
		{
			name: "first appearance order",
			participants: []Record{
				{"cluster_id": int64(2)},
				{"cluster_id": int64(0)},
				{"cluster_id": int64(2)},
				{"cluster_id": float64(0)},
				{"cluster_id": int64(2)},
			},
			want: []int{3, 2},
		},
		{
			name: "unassigned participants are skipped",
			participants: []Record{
				{"cluster_id": nil},
				{"other": int64(1)},
				{"cluster_id": "a"},
			},
			want: []int{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MemberCounts(tt.participants, "cluster_id")
			if err != nil {
				t.Fatalf("MemberCounts error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("MemberCounts mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMemberCounts_BadGroupValue(t *testing.T) {
	_, err := MemberCounts([]Record{{"cluster_id": []any{1}}}, "cluster_id")
	if err == nil {
		t.Error("expected error for non-scalar group value")
	}
}

package level

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestMergePeaks(t *testing.T) {
	tests := []struct {
		name   string
		peaks  []int
		radius int
		want   []int
	}{
		{
			name:   "adjacent peaks collapse to rounded mean",
			peaks:  []int{10, 11},
			radius: 3,
			want:   []int{11}, // mean 10.5 rounds up
		},
		{
			name:   "distant peaks stay separate",
			peaks:  []int{10, 20},
			radius: 3,
			want:   []int{10, 20},
		},
		{
			name:   "separation equal to radius does not merge",
			peaks:  []int{10, 13},
			radius: 3,
			want:   []int{10, 13},
		},
		{
			name:   "cluster of three merges around densest peak",
			peaks:  []int{10, 12, 14, 30},
			radius: 3,
			want:   []int{12, 30}, // 12 sees both neighbours; 10 and 14 see one each
		},
		{
			name:   "tie broken by lowest index",
			peaks:  []int{10, 12, 30, 32},
			radius: 3,
			want:   []int{11, 31}, // both pairs have count 2; the 10/12 pair merges first
		},
		{
			name:   "chain merges around densest then terminates",
			peaks:  []int{10, 12, 14, 16},
			radius: 3,
			want:   []int{12, 16}, // 12 wins round one and absorbs 10 and 14; 16 is left alone
		},
		{
			name:   "zero radius is a no-op",
			peaks:  []int{5, 5, 6},
			radius: 0,
			want:   []int{5, 5, 6},
		},
		{
			name:   "single peak untouched",
			peaks:  []int{42},
			radius: 3,
			want:   []int{42},
		},
		{
			name:   "empty input",
			peaks:  nil,
			radius: 3,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := append([]int(nil), tt.peaks...)
			got := mergePeaks(input, tt.radius)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("mergePeaks(%v, %d) mismatch (-want +got):\n%s", tt.peaks, tt.radius, diff)
			}
			if diff := cmp.Diff(tt.peaks, input); diff != "" {
				t.Errorf("mergePeaks mutated its input (-want +got):\n%s", diff)
			}
		})
	}
}

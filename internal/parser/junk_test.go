package parser

import "testing"

func TestIsRealProduct(t *testing.T) {
	cases := []struct {
		name  string
		specs Specs
		want  bool
	}{
		{"model and ram", Specs{Model: "T480", RAM: "8GB"}, true},
		{"model and cpu", Specs{Model: "T480", CPU: "i5"}, true},
		{"model and storage", Specs{Model: "T480", Storage: "256GB SSD"}, true},
		{"model only", Specs{Model: "T480"}, false},
		{"unknown model", Specs{Model: Unknown, CPU: "i5", RAM: "8GB"}, false},
		{"empty model", Specs{CPU: "i5", RAM: "8GB"}, false},
		{"unknown specs", Specs{Model: "T480", CPU: Unknown, RAM: Unknown, Storage: Unknown}, false},
	}
	for _, tc := range cases {
		if got := IsRealProduct(tc.specs); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

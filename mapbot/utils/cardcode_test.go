package utils

import "testing"

func TestCardCode(t *testing.T) {
	tests := []struct {
		seq  int64
		want string
	}{
		{0, "aaaa"},
		{1, "aaab"},
		{25, "aaaz"},
		{26, "aaa0"},
		{35, "aaa9"},
		{36, "aaba"},
		{36*36*36*36 - 1, "9999"},
		{36 * 36 * 36 * 36, "aaaaa"},
		{36*36*36*36 + 1, "aaaab"},
	}

	for _, tt := range tests {
		if got := CardCode(tt.seq); got != tt.want {
			t.Errorf("CardCode(%d) = %q, want %q", tt.seq, got, tt.want)
		}
	}
}

func TestCardCodeUnique(t *testing.T) {
	seen := make(map[string]int64)
	for seq := int64(0); seq < 100000; seq++ {
		code := CardCode(seq)
		if prev, ok := seen[code]; ok {
			t.Fatalf("CardCode collision: %d and %d both map to %q", prev, seq, code)
		}
		seen[code] = seq
	}
}

package utils

import (
	"strings"
	"testing"
)

func TestSplitText(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		chunkSize int
		overlap   int
		want      []string
	}{
		{
			name:      "shorter than chunk size",
			text:      "hello",
			chunkSize: 10,
			overlap:   2,
			want:      []string{"hello"},
		},
		{
			name:      "exact chunk size",
			text:      "abcde",
			chunkSize: 5,
			overlap:   1,
			want:      []string{"abcde"},
		},
		{
			name:      "overlapping chunks",
			text:      "abcdefghij",
			chunkSize: 4,
			overlap:   2,
			want:      []string{"abcd", "cdef", "efgh", "ghij"},
		},
		{
			name:      "overlap larger than chunk falls back to full step",
			text:      "abcdefgh",
			chunkSize: 4,
			overlap:   4,
			want:      []string{"abcd", "efgh"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitText(tt.text, tt.chunkSize, tt.overlap)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitText() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplitTextPreservesRunes(t *testing.T) {
	text := strings.Repeat("日本語テキスト", 10)
	chunks := SplitText(text, 12, 3)

	var rebuilt strings.Builder
	step := 12 - 3
	for i, chunk := range chunks {
		runes := []rune(chunk)
		if i < len(chunks)-1 && len(runes) != 12 {
			t.Errorf("chunk %d has %d runes, want 12", i, len(runes))
		}
		if i == len(chunks)-1 {
			rebuilt.WriteString(chunk)
		} else {
			rebuilt.WriteString(string(runes[:step]))
		}
	}
	if rebuilt.String() != text {
		t.Error("chunks do not reassemble into the original text")
	}
}

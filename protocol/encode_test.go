package protocol

import (
	"bytes"
	"testing"
)

func TestEncodeRow(t *testing.T) {
	tests := []struct {
		name     string
		stitches []byte
		want     []byte
	}{
		{"empty", nil, []byte{}},
		{"single set stitch", []byte{1}, []byte{0x01}},
		{"first nibble", []byte{1, 1, 0, 1}, []byte{0x0B}},
		{"second nibble goes to MSN", []byte{0, 0, 0, 0, 1}, []byte{0x10}},
		{"nine stitches spill into a second byte", []byte{1, 0, 0, 0, 0, 0, 0, 1, 1}, []byte{0x81, 0x01}},
		{"non-zero values count as set", []byte{2, 0, 7}, []byte{0x05}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeRow(tt.stitches)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeRow(%v) = % X, want % X", tt.stitches, got, tt.want)
			}
		})
	}
}

func TestEncodePattern(t *testing.T) {
	rows := EncodePattern([][]byte{{1}, {0, 1}, {}})
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if !bytes.Equal(rows[1], []byte{0x02}) {
		t.Errorf("row 1 = % X, want 02", rows[1])
	}
}

package protocol

// StitchesPerByte is the number of stitches EncodeRow packs into one byte.
const StitchesPerByte = 8

// EncodeRow packs one row of stitches (0/1 values) into a row buffer.
//
// Four stitches form a nibble, bit 0 first, as in pattern memory. Nibble 2k goes in
// the LSN of byte k and nibble 2k+1 in its MSN. Pad bits are zero.
func EncodeRow(stitches []byte) []byte {
	out := make([]byte, (len(stitches)+StitchesPerByte-1)/StitchesPerByte)
	for i, v := range stitches {
		if v != 0 {
			out[i/StitchesPerByte] |= 1 << (i % StitchesPerByte)
		}
	}
	return out
}

// EncodePattern encodes every row of a stitch grid with EncodeRow.
func EncodePattern(rows [][]byte) [][]byte {
	out := make([][]byte, len(rows))
	for i, r := range rows {
		out[i] = EncodeRow(r)
	}
	return out
}

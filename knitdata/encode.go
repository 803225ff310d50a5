package knitdata

import "fmt"

// DefaultEntryFlag is written into the flag byte of records created by this package.
const DefaultEntryFlag = 0x01

// WriteEntry stores e as directory record i (0-based).
func WriteEntry(data []byte, i int, e Entry) error {
	off := i * DirectoryEntrySize
	if off < 0 || off+DirectoryEntrySize > len(data) {
		return &BoundsError{Offset: off + DirectoryEntrySize - 1, Size: len(data)}
	}
	rh, rt, ro := ToBCD(e.Rows)
	sh, st, so := ToBCD(e.Stitches)
	ph, pt, po := ToBCD(e.Number)

	rec := data[off : off+DirectoryEntrySize]
	rec[0] = e.Flag
	rec[1] = e.Unknown
	rec[2] = joinNibbles(rh, rt)
	rec[3] = joinNibbles(ro, sh)
	rec[4] = joinNibbles(st, so)
	rec[5] = joinNibbles(e.UnkNibble, ph)
	rec[6] = joinNibbles(pt, po)
	return nil
}

// EncodeRows packs rows into the bitmap area that starts at patternOffset.
// Every row must hold exactly stitches values. Pad bits are written as zero.
func EncodeRows(data []byte, patternOffset, stitches int, rows [][]byte) error {
	perRow := NibblesPerRow(stitches)
	for r, row := range rows {
		if len(row) != stitches {
			return fmt.Errorf("row %d has %d stitches, expected %d", r, len(row), stitches)
		}
		for n := 0; n < perRow; n++ {
			var nib byte
			for bit := 0; bit < StitchesPerNibble; bit++ {
				s := n*StitchesPerNibble + bit
				if s < stitches && row[s] != 0 {
					nib |= 1 << bit
				}
			}
			if err := SetNibble(data, patternOffset, perRow*r+n, nib); err != nil {
				return err
			}
		}
	}
	// An odd nibble count leaves the high nibble of the last byte unused.
	if total := perRow * len(rows); total%2 == 1 {
		if err := SetNibble(data, patternOffset, total, 0); err != nil {
			return err
		}
	}
	return nil
}

// EncodePattern writes the memo area and bitmap of p at p.Region.
//
// Memo byte i lives at MemoOffset-i, but only BytesForMemo(rows) bytes are reserved
// for it; memo bytes past that area alias the bitmap and are not written.
func EncodePattern(data []byte, p *Pattern) error {
	memoBytes := BytesForMemo(p.Rows)
	for i := 0; i < memoBytes; i++ {
		addr := p.MemoOffset - i
		if addr < 0 || addr >= len(data) {
			return &BoundsError{Offset: addr, Size: len(data)}
		}
		var v byte
		if i < len(p.MemoData) {
			v = p.MemoData[i]
		}
		data[addr] = v
	}
	return EncodeRows(data, p.PatternOffset, p.Stitches, p.RowData)
}

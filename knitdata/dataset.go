package knitdata

import (
	"encoding/hex"
	"fmt"
	"sort"
)

// Dataset is one decoded 2048-byte data set: the raw buffer and its patterns.
//
// A Dataset is not safe for concurrent mutation; callers that share one across
// goroutines must serialize Add, Remove and Repack themselves.
type Dataset struct {
	data  []byte
	order []*Pattern // directory order
}

// NewDataset decodes data, which must be exactly DataSize bytes. The buffer is copied.
func NewDataset(data []byte) (*Dataset, error) {
	if len(data) != DataSize {
		return nil, &SizeError{Name: "data set", Expected: DataSize, Actual: len(data)}
	}
	buf := append([]byte(nil), data...)

	patterns, err := ParseOrdered(buf)
	if err != nil {
		return nil, fmt.Errorf("parse patterns: %w", err)
	}
	return &Dataset{data: buf, order: patterns}, nil
}

// Blank returns a data set that looks like the machine's memory right after a
// memory clear (code 888).
func Blank() *Dataset {
	buf := make([]byte, DataSize)
	// The terminator record of a cleared machine names pattern 901.
	buf[0x0005] = 0x09
	buf[0x0006] = 0x01
	buf[0x0700] = 0x01
	buf[0x0701] = 0x20
	buf[0x0710] = 0x07
	buf[0x0711] = 0xF9
	buf[0x07EA] = 0x10
	return &Dataset{data: buf}
}

// Pattern returns a copy of the pattern with the given number.
func (d *Dataset) Pattern(number int) (*Pattern, bool) {
	i := d.index(number)
	if i < 0 {
		return nil, false
	}
	return d.order[i].clone(), true
}

// Numbers returns every stored pattern number in ascending order.
func (d *Dataset) Numbers() []int {
	out := make([]int, 0, len(d.order))
	for _, p := range d.order {
		out = append(out, p.Number)
	}
	sort.Ints(out)
	return out
}

// Patterns returns copies of the stored patterns in directory order.
func (d *Dataset) Patterns() []*Pattern {
	out := make([]*Pattern, len(d.order))
	for i, p := range d.order {
		out[i] = p.clone()
	}
	return out
}

// Len returns the number of stored patterns.
func (d *Dataset) Len() int {
	return len(d.order)
}

// FreeBytes returns the bytes between the directory and the lowest used offset.
func (d *Dataset) FreeBytes() int {
	return d.freeExcluding(-1)
}

// FreeRows returns the approximate number of rows of the given width that fit in
// the remaining memory.
func (d *Dataset) FreeRows(stitches int) int {
	if stitches <= 0 {
		return 0
	}
	free := d.FreeBytes()
	// Each pair of rows costs one memo byte plus NibblesPerRow bitmap bytes.
	perPair := 1 + NibblesPerRow(stitches)
	rows := 2 * (free / perPair)
	if BytesPerPatternAndMemo(stitches, rows+1) <= free {
		rows++
	}
	return rows
}

// Add stores a pattern built from rows and memo. An existing pattern with the same
// number is replaced. The new pattern is placed directly below the lowest used
// offset. memo may be shorter than rows; missing bytes are zero. Only the first
// BytesForMemo(rows) memo bytes are stored; the stored pattern reports the rest as
// the machine reads them back.
func (d *Dataset) Add(number int, rows [][]byte, memo []byte) error {
	if number < 1 || number > MaxBCD {
		return fmt.Errorf("pattern number %d is not representable", number)
	}
	if len(rows) == 0 || len(rows) > MaxBCD {
		return fmt.Errorf("pattern %d: row count %d out of range 1-%d", number, len(rows), MaxBCD)
	}
	stitches := len(rows[0])
	if stitches == 0 || stitches > MaxBCD {
		return fmt.Errorf("pattern %d: stitch count %d out of range 1-%d", number, stitches, MaxBCD)
	}
	for i, r := range rows {
		if len(r) != stitches {
			return fmt.Errorf("pattern %d: row %d has %d stitches, expected %d", number, i, len(r), stitches)
		}
	}

	existing := d.index(number)
	slots := len(d.order)
	if existing >= 0 {
		slots--
	}
	if slots >= DirectorySlots {
		return &CapacityError{Number: number, Slots: true}
	}

	need := BytesPerPatternAndMemo(stitches, len(rows))
	free := d.freeExcluding(existing)
	if need > free {
		return &CapacityError{Number: number, Need: need, Free: free}
	}

	entry := Entry{Flag: DefaultEntryFlag, Number: number, Stitches: stitches, Rows: len(rows)}
	if existing >= 0 {
		old := d.order[existing].Entry
		entry.Flag, entry.Unknown, entry.UnkNibble = old.Flag, old.Unknown, old.UnkNibble
		d.order = append(d.order[:existing], d.order[existing+1:]...)
	}

	p := &Pattern{
		Entry:    entry,
		Region:   regionAt(d.lowest()-1, stitches, len(rows)),
		RowData:  make([][]byte, len(rows)),
		MemoData: make([]byte, len(rows)),
	}
	for i, r := range rows {
		p.RowData[i] = make([]byte, stitches)
		for s, v := range r {
			if v != 0 {
				p.RowData[i][s] = 1
			}
		}
	}
	copy(p.MemoData, memo)

	if err := d.encode(p); err != nil {
		return fmt.Errorf("encode pattern %d: %w", number, err)
	}
	d.order = append(d.order, p)
	return d.writeDirectory()
}

// Remove deletes a pattern. Its bytes are released but storage is not compacted:
// removing anything but the lowest pattern leaves a gap until Repack is called.
func (d *Dataset) Remove(number int) error {
	i := d.index(number)
	if i < 0 {
		return fmt.Errorf("remove %d: %w", number, ErrPatternNotFound)
	}
	d.order = append(d.order[:i], d.order[i+1:]...)
	return d.writeDirectory()
}

// Fragmented reports whether pattern storage has gaps.
func (d *Dataset) Fragmented() bool {
	pptr := InitialPatternOffset
	for _, p := range d.order {
		if p.MemoOffset != pptr {
			return true
		}
		pptr = p.EndOffset
	}
	return false
}

// Repack moves every pattern so storage is contiguous from InitialPatternOffset,
// in directory order, and zeroes the space it frees.
func (d *Dataset) Repack() error {
	pptr := InitialPatternOffset
	for _, p := range d.order {
		p.Region = regionAt(pptr, p.Stitches, p.Rows)
		pptr = p.EndOffset
	}
	for i := DirectorySize; i <= InitialPatternOffset; i++ {
		d.data[i] = 0
	}
	for _, p := range d.order {
		if err := d.encode(p); err != nil {
			return fmt.Errorf("repack pattern %d: %w", p.Number, err)
		}
	}
	return d.writeDirectory()
}

// Bytes returns a copy of the data set buffer.
func (d *Dataset) Bytes() ([]byte, error) {
	if d.Fragmented() {
		return nil, ErrFragmented
	}
	return append([]byte(nil), d.data...), nil
}

// HexDump returns a hex and ASCII dump of the whole buffer.
func (d *Dataset) HexDump() string {
	return hex.Dump(d.data)
}

// encode writes p into the buffer and reloads its memo from there. Memo bytes past
// the reserved memo area read back from the bitmap, so p matches what a reparse
// of the buffer returns.
func (d *Dataset) encode(p *Pattern) error {
	if err := EncodePattern(d.data, p); err != nil {
		return err
	}
	memo, err := extractMemo(d.data, p.MemoOffset, p.Rows)
	if err != nil {
		return err
	}
	p.MemoData = memo
	return nil
}

// writeDirectory rewrites the directory from d.order and terminates it. The
// terminator names the next free pattern number, as the machine does after a clear.
func (d *Dataset) writeDirectory() error {
	for i, p := range d.order {
		if err := WriteEntry(d.data, i, p.Entry); err != nil {
			return err
		}
	}
	for i := len(d.order); i < DirectorySlots; i++ {
		var e Entry
		if i == len(d.order) {
			e.Number = d.nextNumber()
		}
		if err := WriteEntry(d.data, i, e); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dataset) nextNumber() int {
	n := FirstPatternNumber
	for _, p := range d.order {
		if p.Number >= n {
			n = p.Number + 1
		}
	}
	if n > LastPatternNumber {
		return 0
	}
	return n
}

func (d *Dataset) index(number int) int {
	for i, p := range d.order {
		if p.Number == number {
			return i
		}
	}
	return -1
}

// lowest returns the lowest used byte offset, or InitialPatternOffset+1 when empty.
func (d *Dataset) lowest() int {
	return d.lowestExcluding(-1)
}

func (d *Dataset) lowestExcluding(skip int) int {
	low := InitialPatternOffset + 1
	for i, p := range d.order {
		if i != skip && p.EndOffset+1 < low {
			low = p.EndOffset + 1
		}
	}
	return low
}

func (d *Dataset) freeExcluding(skip int) int {
	free := d.lowestExcluding(skip) - DirectorySize
	if free < 0 {
		return 0
	}
	return free
}

package knitdata

import (
	"fmt"
	"io"
	"strings"
)

// ExportOptions controls ExportOffsets.
type ExportOptions struct {
	// Annotate adds a leading column with the known meaning of each offset
	Annotate bool

	// Exclude names MemoryRanges whose offsets are skipped. Nil means
	// DefaultExclude; use an empty, non-nil slice to export everything.
	Exclude []string
}

// DefaultExclude skips the ranges whose contents vary per pattern and do not diff
// meaningfully byte by byte.
var DefaultExclude = []string{RangePattern, RangeNeedle, RangeMotif}

// ExportOffsets writes one CSV record per offset: [note,] offset, value.
// It is meant for comparing several data sets to find what a machine operation changed.
// Every field is quoted and records end in CRLF.
func ExportOffsets(w io.Writer, data []byte, offsets []int, opts ExportOptions) error {
	exclude := opts.Exclude
	if exclude == nil {
		exclude = DefaultExclude
	}

	for _, off := range offsets {
		if excluded(off, exclude) {
			continue
		}
		if off < 0 || off >= len(data) {
			return &BoundsError{Offset: off, Size: len(data)}
		}

		rec := []string{fmt.Sprintf("0x%04X", off), fmt.Sprintf("0x%02X", data[off])}
		if opts.Annotate {
			rec = append([]string{Describe(off)}, rec...)
		}
		if _, err := io.WriteString(w, quoteRecord(rec)); err != nil {
			return fmt.Errorf("write offset 0x%04X: %w", off, err)
		}
	}
	return nil
}

// quoteRecord formats fields as one CSV line with every field quoted.
func quoteRecord(fields []string) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
	return b.String()
}

// ExportOffsets exports offsets of this data set. See the package-level ExportOffsets.
func (d *Dataset) ExportOffsets(w io.Writer, offsets []int, opts ExportOptions) error {
	return ExportOffsets(w, d.data, offsets, opts)
}

// AllOffsets returns every offset of a data set, for use with ExportOffsets.
func AllOffsets() []int {
	out := make([]int, DataSize)
	for i := range out {
		out[i] = i
	}
	return out
}

func excluded(off int, names []string) bool {
	for _, name := range names {
		if InRange(name, off) {
			return true
		}
	}
	return false
}

package knitdata

// Constants describing the data set layout.
const (
	// SectorSize is the size of one floppy sector file
	SectorSize = 1024

	// DataSize is the size of one data set (two sectors)
	DataSize = 2 * SectorSize

	// DirectoryEntrySize is the size of one directory record
	DirectoryEntrySize = 7

	// DirectorySlots is the number of directory records
	DirectorySlots = 99

	// DirectorySize is the number of bytes reserved for the directory
	DirectorySize = DirectorySlots * DirectoryEntrySize

	// InitialPatternOffset is where pattern storage starts; patterns grow down from here
	InitialPatternOffset = 0x06DF

	// FirstPatternNumber is the number of the first custom pattern
	FirstPatternNumber = 901

	// LastPatternNumber is the number of the last custom pattern
	LastPatternNumber = 999

	// MaxBCD is the largest value three BCD nibbles can hold
	MaxBCD = 999

	// StitchesPerNibble is the number of stitches packed into one nibble
	StitchesPerNibble = 4

	// MaxTrack is the highest front-panel track number
	MaxTrack = 40
)

// Fixed control addresses inside the data set.
const (
	AddrCurrentPatternAddr = 0x07EA // stored in MSN and following byte
	AddrCurrentRow         = 0x06FF
	AddrNextRow            = 0x072F
	AddrCurrentRowNumber   = 0x0702
	AddrCarriageStatus     = 0x070F
	AddrSelect             = 0x07EA
)

// BytesForMemo returns the number of memo bytes reserved for a pattern with the given rows.
func BytesForMemo(rows int) int {
	return roundEven(rows) / 2
}

// NibblesPerRow returns the number of nibbles one row of the given width occupies.
// Rows are nibble aligned.
func NibblesPerRow(stitches int) int {
	return roundFour(stitches) / StitchesPerNibble
}

// BytesPerPattern returns the number of bitmap bytes for a pattern.
func BytesPerPattern(stitches, rows int) int {
	return roundEven(rows*NibblesPerRow(stitches)) / 2
}

// BytesPerPatternAndMemo returns the total bytes a pattern occupies, memo included.
func BytesPerPatternAndMemo(stitches, rows int) int {
	return BytesPerPattern(stitches, rows) + BytesForMemo(rows)
}

func roundEven(v int) int {
	return v + v%2
}

func roundFour(v int) int {
	if r := v % 4; r != 0 {
		return v + 4 - r
	}
	return v
}

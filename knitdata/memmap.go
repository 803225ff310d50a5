package knitdata

// AddressRange is a half-open byte range [Start, End).
type AddressRange struct {
	Start, End int
}

// Contains reports whether off lies in the range.
func (r AddressRange) Contains(off int) bool {
	return off >= r.Start && off < r.End
}

// Named memory ranges whose contents vary per pattern.
const (
	RangePattern = "pattern"
	RangeNeedle  = "needle"
	RangeMotif   = "motif"
)

// MemoryRanges groups data set addresses by usage.
var MemoryRanges = map[string][]AddressRange{
	RangePattern: {{0x0000, 0x06E0}},
	RangeNeedle:  {{0x06E6, 0x0700}, {0x0716, 0x0730}},
	RangeMotif:   {{0x07ED, 0x0800}},
}

// InRange reports whether off falls inside the named range.
func InRange(name string, off int) bool {
	for _, r := range MemoryRanges[name] {
		if r.Contains(off) {
			return true
		}
	}
	return false
}

const mSetNote = "Changes to 0x20 when M set, stays when M unset"

// AddressNotes describes what is known about individual addresses.
var AddressNotes = map[int]string{
	0x06E0: "pressing M changes this to 0x81 forever",
	0x06E1: "pressing M changes this to 0x02 forever",
	0x06E2: "Unknown",
	0x06E3: "Unknown",
	0x06E4: "Unknown",
	0x06E5: "Always 1766?",
	0x06E6: "End (lowest byte) of current row needle pattern",
	0x06FF: "Start (highest byte) of current row needle pattern",
	0x0700: "On memory clear init to 01",
	0x0701: "On memory clear init to 0x20, known to change",
	0x0702: "LSN is current row number hundreds",
	0x0703: "Current Row Number",
	0x070D: "Variations and M button status",
	0x070E: "Changes when the left end of pattern in Selection 1 is changed",
	0x070F: "Carriage Status (direction)",
	0x0710: "Always 0x07?",
	0x0711: "Always 0xf9?",
	0x0715: "Changes to 01 when M set, stays when M unset",
	0x0716: "End (lowest byte) of next row needle pattern",
	0x072F: "Start (highest byte) of next row needle pattern",
	0x0738: mSetNote,
	0x073A: mSetNote,
	0x073C: mSetNote,
	0x073E: mSetNote,
	0x0740: mSetNote,
	0x0742: mSetNote,
	0x0744: mSetNote,
	0x0747: mSetNote,
	0x074B: mSetNote,
	0x074D: mSetNote,
	0x0750: mSetNote,
	0x0752: mSetNote,
	0x0756: mSetNote,
	0x075A: mSetNote,
	0x075E: mSetNote,
	0x07D4: mSetNote,
	0x07D5: mSetNote,
	0x07E5: mSetNote,
	0x07E6: mSetNote,
	0x07E7: mSetNote,
	0x07E8: mSetNote,
	0x07E9: mSetNote,
	0x07EA: "MSN - selector position, LSN - Current Pattern Number hundreds",
	0x07EB: "Current Pattern Number tens, ones",
	// Motif position hundreds nibbles have 0x80 set for the right side.
	0x07EC: "MSN - unknown, LSN - Motif 6 posn hundreds",
	0x07ED: "Motif 6 posn tens, ones",
	0x07EE: "Motif 6 copies hundreds, tens",
	0x07EF: "Motif 6 copies ones, Motif 5 position hundreds",
	0x07F0: "Motif 5 position tens, ones",
	0x07F1: "Motif 5 copies hundreds, tens",
	0x07F2: "Motif 5 copies ones, Motif 4 position hundreds",
	0x07F3: "Motif 4 position tens, ones",
	0x07F4: "Motif 4 copies hundreds, tens",
	0x07F5: "Motif 4 copies ones, Motif 3 position hundreds",
	0x07F6: "Motif 3 position tens, ones",
	0x07F7: "Motif 3 copies hundreds, tens",
	0x07F8: "Motif 3 copies ones, Motif 2 position hundreds",
	0x07F9: "Motif 2 position tens, ones",
	0x07FA: "Motif 2 copies hundreds, tens",
	0x07FB: "Motif 2 copies ones, Motif 1 position hundreds",
	0x07FC: "Motif 1 position tens, ones",
	0x07FD: "Motif 1 copies hundreds, tens",
	0x07FE: "Selector 1 position hundreds",
	0x07FF: "Selector 1 position tens, ones",
}

// Describe returns the note for off, or "Unknown".
func Describe(off int) string {
	if s, ok := AddressNotes[off]; ok {
		return s
	}
	return "Unknown"
}

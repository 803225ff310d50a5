package knitdata

// Nibbles splits a byte into its most and least significant nibbles.
func Nibbles(b byte) (msn, lsn byte) {
	return b >> 4, b & 0x0F
}

// BCD returns 100*h + 10*t + o. The digits are not range checked; values above 9
// are taken exactly as the machine stored them.
func BCD(h, t, o byte) int {
	return 100*int(h) + 10*int(t) + int(o)
}

// ToBCD splits n into hundreds, tens and ones digits. n must be in 0..MaxBCD.
func ToBCD(n int) (h, t, o byte) {
	return byte(n / 100 % 10), byte(n / 10 % 10), byte(n % 10)
}

// NibbleAt returns nibble index of the run that starts at base and grows toward
// lower addresses. Odd indexes are the MSN of byte base-index/2, even indexes the LSN.
func NibbleAt(data []byte, base, index int) (byte, error) {
	addr := base - index/2
	if addr < 0 || addr >= len(data) {
		return 0, &BoundsError{Offset: addr, Size: len(data)}
	}
	msn, lsn := Nibbles(data[addr])
	if index%2 == 1 {
		return msn, nil
	}
	return lsn, nil
}

// SetNibble stores v in the nibble NibbleAt would read for the same base and index.
func SetNibble(data []byte, base, index int, v byte) error {
	addr := base - index/2
	if addr < 0 || addr >= len(data) {
		return &BoundsError{Offset: addr, Size: len(data)}
	}
	if index%2 == 1 {
		data[addr] = data[addr]&0x0F | (v&0x0F)<<4
	} else {
		data[addr] = data[addr]&0xF0 | v&0x0F
	}
	return nil
}

// joinNibbles is the inverse of Nibbles.
func joinNibbles(msn, lsn byte) byte {
	return (msn&0x0F)<<4 | lsn&0x0F
}

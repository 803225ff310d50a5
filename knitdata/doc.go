// Package knitdata decodes and edits the custom pattern memory of a KH930 knitting machine.
//
// # Data Set Format
//
// The machine saves its pattern memory as one 2048-byte data set, stored on the
// (emulated) floppy as two 1024-byte sectors. The front-panel track number maps onto
// physical sectors like this:
//
//	Track  1 == sectors 00.dat and 01.dat
//	Track  2 == sectors 02.dat and 03.dat
//	...
//	Track 40 == sectors 78.dat and 79.dat
//
// The data set starts with a directory of 99 seven-byte records, one per custom
// pattern (numbered 901-999):
//
//	[FLAG][UNKNOWN][RH|RT][RO|SH][ST|SO][UNK|PH][PT|PO]
//	  FLAG     0x00 terminates the directory
//	  R*       rows, three BCD nibbles
//	  S*       stitches, three BCD nibbles
//	  P*       pattern number, three BCD nibbles
//
// Pattern storage grows downward from InitialPatternOffset, contiguous in directory
// order. Each pattern stores one memo byte per row ending at its memo pointer,
// followed (at lower addresses) by the stitch bitmap packed four stitches per nibble.
// Nibble indexes count toward lower addresses: nibble 0 is the LSN of the pattern
// byte, nibble 1 its MSN, nibble 2 the LSN of the byte below, and so on.
//
// # Usage
//
// Decode a track from an emulator directory:
//
//	ds, err := knitdata.Open("/srv/pdd", 1)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, n := range ds.Numbers() {
//	    p, _ := ds.Pattern(n)
//	    fmt.Printf("%d: %d stitches x %d rows\n", p.Number, p.Stitches, p.Rows)
//	    fmt.Print(p)
//	}
//
// Add a pattern and write the track back:
//
//	if err := ds.Add(905, rows, nil); err != nil {
//	    var capErr *knitdata.CapacityError
//	    if errors.As(err, &capErr) {
//	        fmt.Printf("only %d bytes free\n", capErr.Free)
//	    }
//	    return err
//	}
//	err = ds.Save("/srv/pdd", 1)
//
// # Error Handling
//
// The directory is self-terminating, so a missing terminator within 99 slots is not an
// error. Addresses that fall outside the buffer surface as *BoundsError, distinct from
// normal termination. Storage edits report *CapacityError when memory is exhausted.
package knitdata

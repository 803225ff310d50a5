package knitdata

import (
	"fmt"
	"os"
	"path/filepath"
)

// SectorFiles returns the two sector file names that hold the given track.
func SectorFiles(track int) (string, string, error) {
	if track < 1 || track > MaxTrack {
		return "", "", fmt.Errorf("track %d out of range 1-%d", track, MaxTrack)
	}
	psn := (track - 1) * 2
	return fmt.Sprintf("%02d.dat", psn), fmt.Sprintf("%02d.dat", psn+1), nil
}

// Open reads and decodes a track from an emulator directory.
//
// Example:
//
//	ds, err := knitdata.Open("/srv/pdd", 1) // reads 00.dat and 01.dat
func Open(dir string, track int) (*Dataset, error) {
	first, second, err := SectorFiles(track)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, DataSize)
	for _, name := range []string{first, second} {
		sector, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read sector: %w", err)
		}
		if len(sector) != SectorSize {
			return nil, &SizeError{Name: name, Expected: SectorSize, Actual: len(sector)}
		}
		data = append(data, sector...)
	}

	ds, err := NewDataset(data)
	if err != nil {
		return nil, fmt.Errorf("track %d: %w", track, err)
	}
	return ds, nil
}

// Save writes the data set back to the two sector files of the given track.
func (d *Dataset) Save(dir string, track int) error {
	first, second, err := SectorFiles(track)
	if err != nil {
		return err
	}
	data, err := d.Bytes()
	if err != nil {
		return fmt.Errorf("track %d: %w", track, err)
	}

	if err := os.WriteFile(filepath.Join(dir, first), data[:SectorSize], 0o644); err != nil {
		return fmt.Errorf("failed to write sector: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, second), data[SectorSize:], 0o644); err != nil {
		return fmt.Errorf("failed to write sector: %w", err)
	}
	return nil
}

package util

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// fingerprintWindow is how many trailing bytes are hashed. Sensor logs only
// grow at the end, so the tail plus the size identifies a revision.
const fingerprintWindow = 4096

// FileFingerprint identifies a revision of a file without hashing all of it
func FileFingerprint(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return "", err
	}

	size := stat.Size()
	readSize := int64(fingerprintWindow)
	if size < readSize {
		readSize = size
	}

	if _, err := file.Seek(-readSize, io.SeekEnd); err != nil {
		return "", err
	}

	data := make([]byte, readSize)
	if _, err := io.ReadFull(file, data); err != nil {
		return "", err
	}

	return fmt.Sprintf("%d-%08x", size, crc32.ChecksumIEEE(data)), nil
}

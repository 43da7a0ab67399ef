package download

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// hashBlockSize is the read size used when digesting persisted files.
const hashBlockSize = 4096

// HashFile returns the hex SHA-256 digest and size of the file at path,
// reading it back in fixed-size blocks. The size is taken from what was
// actually read, so it always agrees with the digest.
func HashFile(path string) (digest string, size int64, err error) {
	f, err := os.Open(path) //nolint:gosec // path was produced by the downloader
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashBlockSize)
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			size += int64(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", 0, readErr
		}
	}

	return hex.EncodeToString(h.Sum(nil)), size, nil
}

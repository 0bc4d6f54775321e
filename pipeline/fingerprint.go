package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Fingerprint is a cheap, comparable identity for an artifact on disk:
// content hash plus size and modification time. Two fingerprints with the
// same Hash refer to the same content.
type Fingerprint struct {
	Hash  string
	Size  int64
	MTime time.Time
}

// Matches reports whether the artifact content is unchanged.
func (f Fingerprint) Matches(other Fingerprint) bool {
	return f.Hash == other.Hash && f.Size == other.Size
}

// ComputeFingerprint fingerprints a file or directory artifact.
//
// Files hash their content. Directories hash the sorted walk of relative
// path, size and mtime of every regular file inside, which is enough to
// detect additions, removals and edits without re-reading large trees.
// The directory MTime is the newest file mtime within it.
func ComputeFingerprint(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, err
	}

	if !info.IsDir() {
		return fingerprintFile(path, info)
	}
	return fingerprintDir(path, info)
}

func fingerprintFile(path string, info os.FileInfo) (Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return Fingerprint{}, fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return Fingerprint{
		Hash:  hex.EncodeToString(h.Sum(nil)),
		Size:  info.Size(),
		MTime: info.ModTime(),
	}, nil
}

func fingerprintDir(path string, info os.FileInfo) (Fingerprint, error) {
	h := sha256.New()
	var total int64
	newest := info.ModTime()

	// WalkDir visits entries in lexical order, so the hash is stable.
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(path, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(h, "%s\x00%d\x00%d\x00", rel, fi.Size(), fi.ModTime().UnixNano())
		total += fi.Size()
		if fi.ModTime().After(newest) {
			newest = fi.ModTime()
		}
		return nil
	})
	if err != nil {
		return Fingerprint{}, fmt.Errorf("failed to fingerprint directory %s: %w", path, err)
	}

	return Fingerprint{
		Hash:  hex.EncodeToString(h.Sum(nil)),
		Size:  total,
		MTime: newest,
	}, nil
}

// CountLines returns the number of newline-terminated records in a file.
// Used for the end-of-run dataset size report.
func CountLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	buf := make([]byte, 64*1024)
	lastByte := byte('\n')
	for {
		n, err := f.Read(buf)
		for _, b := range buf[:n] {
			if b == '\n' {
				count++
			}
		}
		if n > 0 {
			lastByte = buf[n-1]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	// A trailing partial line still counts as a record.
	if lastByte != '\n' {
		count++
	}
	return count, nil
}

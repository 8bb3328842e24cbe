package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// ComputeJSONLHash computes a SHA256 hash of a JSONL file's contents.
// A missing file hashes like an empty one.
func ComputeJSONLHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			h := sha256.Sum256([]byte{})
			return hex.EncodeToString(h[:]), nil
		}
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// storedHash returns the JSONL hash recorded by the last rebuild, or "".
func (d *DB) storedHash() (string, error) {
	var hash sql.NullString
	err := d.db.QueryRow("SELECT value FROM _meta WHERE key = 'jsonl_hash'").Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return hash.String, nil
}

// NeedsSync reports whether the JSONL file changed since the last rebuild.
func (d *DB) NeedsSync(jsonlPath string) (bool, error) {
	current, err := ComputeJSONLHash(jsonlPath)
	if err != nil {
		return true, err
	}
	stored, err := d.storedHash()
	if err != nil {
		return true, err
	}
	return current != stored, nil
}

// Sync rebuilds the database if the JSONL file changed. It reports
// whether a rebuild happened.
func (d *DB) Sync(jsonlPath string) (bool, error) {
	stale, err := d.NeedsSync(jsonlPath)
	if err != nil {
		return false, fmt.Errorf("checking cache: %w", err)
	}
	if !stale {
		return false, nil
	}
	if _, err := d.RebuildFromJSONL(jsonlPath); err != nil {
		return false, err
	}
	return true, nil
}

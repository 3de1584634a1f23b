// Package localfs keeps archived objects as read-only files on disk.
//
// Each object lives at <root>/<shard>/<cid>, where shard is the last two
// characters of the CID string: CIDv1 base32 strings all begin with the same
// multibase and codec prefix, so the tail spreads objects across directories
// where the head would not. Writes land in a temp file and are renamed into
// place, so a crash never leaves a partial object under its final name.
// Reads re-derive the CID from the bytes on disk, so silent corruption
// surfaces as ErrCIDMismatch instead of bad data.
package localfs

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"

	"dytallix.io/pqcwallet/archive"
)

// Store is a local filesystem archive rooted at a single directory. It is
// offline and deterministic: no network, no wall-clock dependence.
type Store struct {
	root string
}

// New constructs a store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

// Put stores data under its derived CID. Storing the same bytes again is a
// no-op; finding different bytes already published under that CID means the
// store was tampered with, and fails with ErrImmutable.
func (s *Store) Put(data []byte) (cid.Cid, error) {
	id, err := archive.CID(data)
	if err != nil {
		return cid.Undef, err
	}

	path := s.pathFor(id)
	switch existing, err := os.ReadFile(path); {
	case err == nil:
		if !bytes.Equal(existing, data) {
			return cid.Undef, archive.ErrImmutable
		}
		return id, nil
	case !os.IsNotExist(err):
		return cid.Undef, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cid.Undef, err
	}
	tmp, err := os.CreateTemp(dir, ".ingest-*")
	if err != nil {
		return cid.Undef, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return cid.Undef, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return cid.Undef, err
	}
	if err := tmp.Close(); err != nil {
		return cid.Undef, err
	}
	if err := os.Chmod(tmp.Name(), 0o444); err != nil {
		return cid.Undef, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return cid.Undef, err
	}
	return id, nil
}

// Get returns the object bytes after re-deriving and checking the CID.
func (s *Store) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, archive.ErrInvalidCID
	}
	data, err := os.ReadFile(s.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, archive.ErrNotFound
		}
		return nil, err
	}
	got, err := archive.CID(data)
	if err != nil {
		return nil, err
	}
	if !got.Equals(id) {
		return nil, archive.ErrCIDMismatch
	}
	return data, nil
}

// Has reports whether an object file exists for id. It does not read the
// bytes; corruption only surfaces on Get.
func (s *Store) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	info, err := os.Stat(s.pathFor(id))
	return err == nil && info.Mode().IsRegular()
}

func (s *Store) pathFor(id cid.Cid) string {
	name := id.String()
	return filepath.Join(s.root, name[len(name)-2:], name)
}

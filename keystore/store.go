package keystore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dytallix.io/pqcwallet/address"
)

// Store is a directory of keystore files, one per address, named
// <address>.json. Files are created 0600 inside a 0700 directory and are
// immutable: writing an address that already has a file fails with ErrExists
// unless overwrite is requested.
type Store struct {
	dir string
}

// DefaultDirectory returns ~/.dytallix/keystore.
func DefaultDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".dytallix", "keystore"), nil
}

// OpenStore opens (creating if needed) a keystore directory. An empty dir
// selects DefaultDirectory.
func OpenStore(dir string) (*Store, error) {
	if dir == "" {
		var err error
		dir, err = DefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("keystore: create dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the backing directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) pathFor(addr string) (string, error) {
	if err := address.Validate(addr); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, addr+".json"), nil
}

// Put writes a keystore file for its address.
func (s *Store) Put(k *Keystore, overwrite bool) error {
	if err := k.validateStructure(); err != nil {
		return err
	}
	path, err := s.pathFor(k.Address)
	if err != nil {
		return err
	}
	data, err := k.Marshal()
	if err != nil {
		return err
	}

	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", ErrExists, k.Address)
		}
		return fmt.Errorf("keystore: write: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("keystore: write: %w", err)
	}
	return f.Close()
}

// Get loads and structurally validates the keystore for addr.
func (s *Store) Get(addr string) (*Keystore, error) {
	path, err := s.pathFor(addr)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, addr)
		}
		return nil, fmt.Errorf("keystore: read: %w", err)
	}
	k, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if k.Address != addr {
		return nil, fmt.Errorf("%w: file for %s holds address %s", ErrIntegrity, addr, k.Address)
	}
	return k, nil
}

// Has reports whether a keystore file exists for addr.
func (s *Store) Has(addr string) bool {
	path, err := s.pathFor(addr)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Delete removes the keystore file for addr.
func (s *Store) Delete(addr string) error {
	path, err := s.pathFor(addr)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, addr)
		}
		return fmt.Errorf("keystore: delete: %w", err)
	}
	return nil
}

// List returns the stored addresses, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("keystore: list: %w", err)
	}
	var addrs []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		addr := strings.TrimSuffix(e.Name(), ".json")
		if address.Validate(addr) != nil {
			continue
		}
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs, nil
}

// Package bundle exports and imports archive snapshots as deterministic TAR
// files, for moving an envelope archive between machines or attaching it to
// an audit trail.
//
// Snapshot bytes are reproducible: entries are ordered lexicographically by
// CID and TAR headers are normalized (zero owner, epoch mtime), so two
// snapshots of the same archive content are byte-identical.
package bundle

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"dytallix.io/pqcwallet/archive"
	"dytallix.io/pqcwallet/tx"
)

// FormatVersion is the current snapshot index schema version.
const FormatVersion = 1

var epoch = time.Unix(0, 0).UTC()

type indexJSON struct {
	Version   int          `json:"version"`
	CIDCodec  string       `json:"cidCodec"`
	Multihash string       `json:"multihash"`
	Entries   []indexEntry `json:"entries"`
}

type indexEntry struct {
	CID    string `json:"cid"`
	Size   int    `json:"size"`
	TxHash string `json:"tx_hash"`
}

// Export writes a snapshot containing the envelopes behind the given CIDs.
// Every exported object is re-verified against its CID and must parse and
// verify as a signed envelope.
func Export(w io.Writer, store archive.Store, ids []cid.Cid) error {
	if store == nil {
		return fmt.Errorf("bundle: nil store")
	}

	uniq := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return archive.ErrInvalidCID
		}
		uniq[id.String()] = id
	}
	order := make([]string, 0, len(uniq))
	for s := range uniq {
		order = append(order, s)
	}
	sort.Strings(order)

	tw := tar.NewWriter(w)
	entries := make([]indexEntry, 0, len(order))
	for _, s := range order {
		id := uniq[s]
		b, err := store.Get(id)
		if err != nil {
			_ = tw.Close()
			return err
		}
		env, err := tx.UnmarshalSigned(b)
		if err != nil {
			_ = tw.Close()
			return fmt.Errorf("bundle: %s: %w", s, err)
		}
		if err := env.Verify(); err != nil {
			_ = tw.Close()
			return fmt.Errorf("bundle: %s: %w", s, err)
		}
		hash, err := env.Hash()
		if err != nil {
			_ = tw.Close()
			return err
		}

		if err := writeEntry(tw, "envelopes/"+s, b); err != nil {
			_ = tw.Close()
			return err
		}
		entries = append(entries, indexEntry{CID: s, Size: len(b), TxHash: hash})
	}

	idx, err := json.Marshal(indexJSON{
		Version:   FormatVersion,
		CIDCodec:  "raw",
		Multihash: "sha2-256",
		Entries:   entries,
	})
	if err != nil {
		_ = tw.Close()
		return err
	}
	if err := writeEntry(tw, "index.json", append(idx, '\n')); err != nil {
		_ = tw.Close()
		return err
	}
	return tw.Close()
}

// ImportOptions controls snapshot import behavior.
type ImportOptions struct {
	// IgnoreUnknown allows unrecognized TAR entries instead of failing closed.
	IgnoreUnknown bool
}

// Import reads a snapshot and stores every envelope, fail-closed on unknown
// entries.
func Import(r io.Reader, store archive.Store) error {
	return ImportWithOptions(r, store, ImportOptions{})
}

// ImportWithOptions reads a snapshot from r into store. Each object must
// match the CID in its entry name, parse as a signed envelope, and verify.
func ImportWithOptions(r io.Reader, store archive.Store, opts ImportOptions) error {
	if store == nil {
		return fmt.Errorf("bundle: nil store")
	}

	tr := tar.NewReader(r)
	seen := map[string]struct{}{}
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		name := cleanPath(h.Name)
		if name == "" {
			return fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}
		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return fmt.Errorf("bundle: unexpected tar entry type %v (%s)", h.Typeflag, name)
		}
		if name == "index.json" {
			// Non-authoritative metadata.
			_, _ = io.Copy(io.Discard, tr)
			continue
		}
		if !strings.HasPrefix(name, "envelopes/") {
			if opts.IgnoreUnknown {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			return fmt.Errorf("bundle: unknown entry: %s", name)
		}

		id, derr := cid.Decode(strings.TrimPrefix(name, "envelopes/"))
		if derr != nil || !id.Defined() {
			return archive.ErrInvalidCID
		}
		if _, dup := seen[id.String()]; dup {
			return fmt.Errorf("bundle: duplicate entry: %s", id)
		}
		seen[id.String()] = struct{}{}

		payload, err := io.ReadAll(tr)
		if err != nil {
			return err
		}
		got, err := archive.CID(payload)
		if err != nil {
			return err
		}
		if got != id {
			return archive.ErrCIDMismatch
		}
		env, err := tx.UnmarshalSigned(payload)
		if err != nil {
			return fmt.Errorf("bundle: %s: %w", id, err)
		}
		if err := env.Verify(); err != nil {
			return fmt.Errorf("bundle: %s: %w", id, err)
		}

		putID, err := store.Put(payload)
		if err != nil {
			return err
		}
		if putID != id {
			return archive.ErrCIDMismatch
		}
	}
}

func writeEntry(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}

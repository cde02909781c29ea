// Package topology fingerprints the attached monitor layout.
//
// A Topology is the ordered list of monitor rectangles. Its canonical CBOR
// encoding is its identity: the store interns that encoding and hands back a
// surrogate ID, so re-observing an identical layout yields the same ID.
package topology

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/1broseidon/persistwin/internal/codec"
	"github.com/1broseidon/persistwin/internal/platform"
	"github.com/zeebo/blake3"
)

// ID is the store's surrogate key for an interned topology.
type ID int64

// Topology is the ordered sequence of monitor rectangles in virtual-screen
// coordinates. Work areas and names are deliberately excluded.
type Topology struct {
	Monitors []platform.Rect `cbor:"monitors" json:"monitors"`
}

// FromMonitors builds a Topology from monitors in the given order. With
// sortMonitors the rectangles are ordered by position first, so a layout that
// is re-enumerated in a different order keeps its identity.
func FromMonitors(monitors []platform.Monitor, sortMonitors bool) Topology {
	rects := make([]platform.Rect, len(monitors))
	for i, m := range monitors {
		rects[i] = m.Rect
	}
	if sortMonitors {
		sort.SliceStable(rects, func(i, j int) bool {
			a, b := rects[i], rects[j]
			if a.Left != b.Left {
				return a.Left < b.Left
			}
			if a.Top != b.Top {
				return a.Top < b.Top
			}
			if a.Right != b.Right {
				return a.Right < b.Right
			}
			return a.Bottom < b.Bottom
		})
	}
	return Topology{Monitors: rects}
}

// Equal reports element-for-element equality.
func (t Topology) Equal(other Topology) bool {
	if len(t.Monitors) != len(other.Monitors) {
		return false
	}
	for i := range t.Monitors {
		if t.Monitors[i] != other.Monitors[i] {
			return false
		}
	}
	return true
}

// Canonical returns the deterministic encoding used as the topology's identity.
func (t Topology) Canonical() ([]byte, error) {
	// nil and empty must encode the same way.
	if t.Monitors == nil {
		t.Monitors = []platform.Rect{}
	}
	return codec.Marshal(t)
}

// Decode parses a canonical encoding back into a Topology.
func Decode(data []byte) (Topology, error) {
	var t Topology
	if err := codec.Unmarshal(data, &t); err != nil {
		return Topology{}, err
	}
	return t, nil
}

func (t Topology) String() string {
	parts := make([]string, len(t.Monitors))
	for i, r := range t.Monitors {
		parts[i] = r.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// fingerprintKey separates topology digests from any other BLAKE3 use: the
// ASCII domain name zero-padded to 32 bytes.
var fingerprintKey = [32]byte{
	'p', 'e', 'r', 's', 'i', 's', 't', 'w', 'i', 'n', '.', 't', 'o', 'p', 'o', 'l',
	'o', 'g', 'y', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// fingerprintLen is the number of digest bytes kept in a fingerprint.
const fingerprintLen = 8

// Fingerprint returns a short keyed BLAKE3 digest of a canonical encoding.
// Unlike the ID it is stable across databases and machines.
func Fingerprint(canonical []byte) string {
	hasher, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		panic("topology: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(canonical)
	sum := hasher.Sum(nil)
	return hex.EncodeToString(sum[:fingerprintLen])
}

// Fingerprint digests t's canonical encoding.
func (t Topology) Fingerprint() (string, error) {
	data, err := t.Canonical()
	if err != nil {
		return "", fmt.Errorf("encode topology: %w", err)
	}
	return Fingerprint(data), nil
}

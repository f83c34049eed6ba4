package model

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
)

// LockedPackage is one pinned dependency from a lockfile
type LockedPackage struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Source  string `toml:"source,omitempty"`
}

// Lockfile is a parsed dependency lockfile (Cargo.lock style TOML with a
// [[package]] array). Only used for diagnostics; the cache key is computed
// from the raw bytes, not the parsed form.
type Lockfile struct {
	Packages []LockedPackage `toml:"package"`
}

// ParseLockfile parses a TOML lockfile
func ParseLockfile(data []byte) (*Lockfile, error) {
	var lf Lockfile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, goerr.Wrap(err, "failed to parse lockfile TOML")
	}
	return &lf, nil
}

// CacheKey derives a cache key from the given key file contents. The key is
// a pure function of the inputs: identical contents always yield the same
// key, and any byte change yields a different one.
func CacheKey(prefix string, contents ...[]byte) string {
	h := sha256.New()
	for _, c := range contents {
		h.Write(c)
	}
	return prefix + "-" + hex.EncodeToString(h.Sum(nil))
}

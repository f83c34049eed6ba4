package model_test

import (
	"testing"

	"github.com/m-mizutani/drover/pkg/domain/model"
)

const cargoLock = `
version = 3

[[package]]
name = "bevy"
version = "0.7.0"
source = "registry+https://github.com/rust-lang/crates.io-index"

[[package]]
name = "brando"
version = "0.1.0"

[[package]]
name = "rand"
version = "0.8.5"
source = "registry+https://github.com/rust-lang/crates.io-index"
`

func TestParseLockfile(t *testing.T) {
	lf, err := model.ParseLockfile([]byte(cargoLock))
	if err != nil {
		t.Fatalf("ParseLockfile() error = %v", err)
	}

	if len(lf.Packages) != 3 {
		t.Fatalf("len(Packages) = %d, want 3", len(lf.Packages))
	}
	if lf.Packages[0].Name != "bevy" || lf.Packages[0].Version != "0.7.0" {
		t.Errorf("Packages[0] = %+v, want bevy 0.7.0", lf.Packages[0])
	}
	if lf.Packages[1].Source != "" {
		t.Errorf("Packages[1].Source = %q, want empty", lf.Packages[1].Source)
	}
}

func TestCacheKey(t *testing.T) {
	content := []byte(cargoLock)

	// Identical contents always produce the same key
	k1 := model.CacheKey("brando", content)
	k2 := model.CacheKey("brando", content)
	if k1 != k2 {
		t.Errorf("CacheKey not deterministic: %q != %q", k1, k2)
	}

	// Any change to the contents changes the key
	changed := append([]byte(nil), content...)
	changed[len(changed)-2] = '6'
	if k1 == model.CacheKey("brando", changed) {
		t.Error("CacheKey did not change for changed contents")
	}

	// The prefix isolates pipelines sharing a store
	if k1 == model.CacheKey("other", content) {
		t.Error("CacheKey did not change for different prefix")
	}

	// Multiple key files contribute in order
	multi := model.CacheKey("brando", content, []byte("extra"))
	if k1 == multi {
		t.Error("CacheKey did not change for additional key file")
	}
}

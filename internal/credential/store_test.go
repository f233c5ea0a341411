package credential

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const goodKey = "sk-or-v1-0123456789abcdef"

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vox", "credentials.yaml")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s, path
}

func TestStore_EmptyWhenMissing(t *testing.T) {
	s, _ := openTemp(t)
	if got := s.Get(); got != "" {
		t.Fatalf("expected empty key, got %q", got)
	}
}

func TestStore_SetPersistsAndReloads(t *testing.T) {
	s, path := openTemp(t)
	if err := s.Set("  " + goodKey + "\n"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := s.Get(); got != goodKey {
		t.Fatalf("get after set: got %q want %q", got, goodKey)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 file mode, got %o", perm)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.Get(); got != goodKey {
		t.Fatalf("reloaded key: got %q want %q", got, goodKey)
	}
}

func TestStore_RejectsBadKeyAndKeepsPrevious(t *testing.T) {
	cases := []struct {
		name  string
		prior string
		input string
	}{
		{"bad_prefix_no_prior", "", "bad-key"},
		{"bad_prefix_with_prior", goodKey, "bad-key"},
		{"blank_with_prior", goodKey, "   "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := openTemp(t)
			if tc.prior != "" {
				if err := s.Set(tc.prior); err != nil {
					t.Fatalf("set prior: %v", err)
				}
			}

			err := s.Set(tc.input)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if got := s.Get(); got != tc.prior {
				t.Fatalf("key changed on rejection: got %q want %q", got, tc.prior)
			}
		})
	}
}

func TestStore_SeedOnlyFillsEmptyStore(t *testing.T) {
	s, path := openTemp(t)
	if s.Seed("bad-key") {
		t.Fatalf("seeded an invalid key")
	}
	if !s.Seed(goodKey) {
		t.Fatalf("expected seed to apply")
	}
	if s.Seed("sk-or-v1-other") {
		t.Fatalf("seed overwrote an existing key")
	}
	if got := s.Get(); got != goodKey {
		t.Fatalf("get: got %q want %q", got, goodKey)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("seed must not write the credential file, stat err=%v", err)
	}
}

func TestMask(t *testing.T) {
	if got := Mask(""); got != "" {
		t.Fatalf("mask empty: %q", got)
	}
	if got := Mask(goodKey); got != "sk-or-v1-0123…" {
		t.Fatalf("mask: %q", got)
	}
}

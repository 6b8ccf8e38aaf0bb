package service

import (
	"strings"
	"testing"
)

func TestGenerateFormat(t *testing.T) {
	g := NewCodeGenerator()
	for i := 0; i < 100; i++ {
		code, err := g.Generate()
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		if !ValidCodeFormat(code) {
			t.Fatalf("generated code has invalid format: %s", code)
		}
		if !strings.HasPrefix(code, "SHF-") {
			t.Fatalf("generated code missing prefix: %s", code)
		}
		for _, r := range code[4:] {
			if r == '-' {
				continue
			}
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %s contains symbol outside alphabet: %c", code, r)
			}
		}
	}
}

func TestGenerateExcludesAmbiguousSymbols(t *testing.T) {
	for _, forbidden := range []string{"0", "O", "1", "I"} {
		if strings.Contains(codeAlphabet, forbidden) {
			t.Fatalf("alphabet must not contain %s", forbidden)
		}
	}
	if len(codeAlphabet) != 32 {
		t.Fatalf("alphabet size want 32 got %d", len(codeAlphabet))
	}
}

func TestGenerateSetUnique(t *testing.T) {
	g := NewCodeGenerator()
	codes, err := g.GenerateSet(500)
	if err != nil {
		t.Fatalf("generate set failed: %v", err)
	}
	if len(codes) != 500 {
		t.Fatalf("quantity want 500 got %d", len(codes))
	}
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if _, ok := seen[code]; ok {
			t.Fatalf("duplicate code in batch: %s", code)
		}
		seen[code] = struct{}{}
	}
}

func TestGenerateSetZeroQuantity(t *testing.T) {
	g := NewCodeGenerator()
	codes, err := g.GenerateSet(0)
	if err != nil {
		t.Fatalf("generate set failed: %v", err)
	}
	if len(codes) != 0 {
		t.Fatalf("zero quantity should return empty set, got %d", len(codes))
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode("  shf-ab2c-xy9z \n"); got != "SHF-AB2C-XY9Z" {
		t.Fatalf("normalize want SHF-AB2C-XY9Z got %q", got)
	}
}

func TestValidCodeFormat(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"SHF-AB2C-XY9Z", true},
		{"SHF-1234-5678", true},
		{"shf-ab2c-xy9z", false},
		{"SHF-AB2C-XY9", false},
		{"SHX-AB2C-XY9Z", false},
		{"SHF-AB2C-XY9ZZ", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidCodeFormat(tc.code); got != tc.want {
			t.Fatalf("format %q want %v got %v", tc.code, tc.want, got)
		}
	}
}

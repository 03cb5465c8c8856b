package domain_test

import (
	"errors"
	"testing"

	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.trai.ch/zerr"
)

func TestPackageDescriptor_SourceFor(t *testing.T) {
	d := descriptor("python3", "3.12.4")

	src, err := d.SourceFor("x86_64-linux")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.Kind != domain.SourceKindFetch {
		t.Errorf("expected fetch source, got %s", src.Kind)
	}
}

func TestPackageDescriptor_SourceFor_Unsupported(t *testing.T) {
	d := descriptor("python3", "3.12.4")

	_, err := d.SourceFor("riscv64-linux")
	if err == nil {
		t.Fatal("expected error for unsupported platform, got nil")
	}
	if !errors.Is(err, domain.ErrUnsupportedPlatform) {
		t.Errorf("expected ErrUnsupportedPlatform, got %v", err)
	}

	zErr, ok := err.(*zerr.Error)
	if !ok {
		t.Fatalf("expected *zerr.Error, got %T", err)
	}
	meta := zErr.Metadata()
	if platform, ok := meta["requested_platform"].(string); !ok || platform != "riscv64-linux" {
		t.Errorf("expected metadata requested_platform=riscv64-linux, got %v", meta["requested_platform"])
	}
}

func TestPackageDescriptor_SemVer(t *testing.T) {
	d := descriptor("python3", "3.12.4")
	v, err := d.SemVer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.String() != "3.12.4" {
		t.Errorf("SemVer() = %s, want 3.12.4", v)
	}

	bad := descriptor("broken", "not.a.version.at.all")
	if _, err := bad.SemVer(); err == nil {
		t.Error("expected error for malformed version, got nil")
	}
}

func TestSource_Identity(t *testing.T) {
	fetch := domain.Source{
		Kind:   domain.SourceKindFetch,
		URL:    domain.NewInternedString("https://artifacts.example.org/zlib-1.3.1.tar.zst"),
		Digest: domain.NewInternedString("0011223344556677"),
	}
	recipe := domain.Source{
		Kind:  domain.SourceKindRecipe,
		Steps: []string{"./configure", "make install"},
	}

	if fetch.Identity() == recipe.Identity() {
		t.Error("expected distinct identities for distinct sources")
	}
	if fetch.Identity() != fetch.Identity() {
		t.Error("expected identity to be deterministic")
	}
}

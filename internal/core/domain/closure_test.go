package domain_test

import (
	"bytes"
	"testing"

	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.trai.ch/zerr"
)

func descriptor(name, version string, deps ...domain.PackageRequest) domain.PackageDescriptor {
	return domain.PackageDescriptor{
		Name:    domain.NewInternedString(name),
		Version: domain.NewInternedString(version),
		Depends: deps,
		Sources: map[string]domain.Source{
			"x86_64-linux": {
				Kind:   domain.SourceKindFetch,
				URL:    domain.NewInternedString("https://artifacts.example.org/" + name + "-" + version + ".tar.zst"),
				Digest: domain.NewInternedString("deadbeefdeadbeef"),
			},
		},
	}
}

func request(t *testing.T, name, constraint string) domain.PackageRequest {
	t.Helper()
	req, err := domain.NewPackageRequest(name, constraint)
	if err != nil {
		t.Fatalf("failed to build request %s@%s: %v", name, constraint, err)
	}
	return req
}

func TestClosure_Add(t *testing.T) {
	c := domain.NewClosure()
	d := descriptor("python3", "3.12.4")

	if err := c.Add(&d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := c.Add(&d); err == nil {
		t.Error("expected error when adding duplicate package, got nil")
	} else {
		zErr, ok := err.(*zerr.Error)
		if !ok {
			t.Errorf("expected *zerr.Error, got %T", err)
		}
		meta := zErr.Metadata()
		if pkg, ok := meta["package"].(string); !ok || pkg != "python3" {
			t.Errorf("expected metadata package=python3, got %v", meta["package"])
		}
	}
}

func TestClosure_Validate_Cycle(t *testing.T) {
	c := domain.NewClosure()
	a := descriptor("a", "1.0.0", request(t, "b", ""))
	b := descriptor("b", "1.0.0", request(t, "a", ""))

	if err := c.Add(&a); err != nil {
		t.Fatalf("failed to add a: %v", err)
	}
	if err := c.Add(&b); err != nil {
		t.Fatalf("failed to add b: %v", err)
	}

	err := c.Validate()
	if err == nil {
		t.Fatal("expected error for cycle, got nil")
	}

	zErr, ok := err.(*zerr.Error)
	if !ok {
		t.Fatalf("expected *zerr.Error, got %T", err)
	}

	meta := zErr.Metadata()
	if cycle, ok := meta["cycle"].(string); !ok || cycle == "" {
		t.Errorf("expected metadata cycle to be non-empty string, got %v", meta["cycle"])
	}
}

func TestClosure_Validate_MissingDependency(t *testing.T) {
	c := domain.NewClosure()
	a := descriptor("ortools", "9.10.0", request(t, "protobuf", "^5.26"))

	if err := c.Add(&a); err != nil {
		t.Fatalf("failed to add ortools: %v", err)
	}

	err := c.Validate()
	if err == nil {
		t.Fatal("expected error for missing dependency, got nil")
	}

	zErr, ok := err.(*zerr.Error)
	if !ok {
		t.Fatalf("expected *zerr.Error, got %T", err)
	}
	meta := zErr.Metadata()
	if dep, ok := meta["dependency"].(string); !ok || dep != "protobuf" {
		t.Errorf("expected metadata dependency=protobuf, got %v", meta["dependency"])
	}
}

func TestClosure_Validate_ConstraintRejectsMember(t *testing.T) {
	c := domain.NewClosure()
	a := descriptor("ortools", "9.10.0", request(t, "protobuf", "^5.26"))
	b := descriptor("protobuf", "4.25.3")

	if err := c.Add(&a); err != nil {
		t.Fatalf("failed to add ortools: %v", err)
	}
	if err := c.Add(&b); err != nil {
		t.Fatalf("failed to add protobuf: %v", err)
	}

	err := c.Validate()
	if err == nil {
		t.Fatal("expected error for rejected dependency version, got nil")
	}

	zErr, ok := err.(*zerr.Error)
	if !ok {
		t.Fatalf("expected *zerr.Error, got %T", err)
	}
	meta := zErr.Metadata()
	if pkg, ok := meta["package"].(string); !ok || pkg != "protobuf@4.25.3" {
		t.Errorf("expected metadata package=protobuf@4.25.3, got %v", meta["package"])
	}
	if by, ok := meta["required_by"].(string); !ok || by != "ortools@9.10.0" {
		t.Errorf("expected metadata required_by=ortools@9.10.0, got %v", meta["required_by"])
	}
}

func TestClosure_Walk(t *testing.T) {
	c := domain.NewClosure()
	// python3 -> libssl -> zlib
	// Walk order: zlib, libssl, python3
	python := descriptor("python3", "3.12.4", request(t, "libssl", ""))
	libssl := descriptor("libssl", "3.3.1", request(t, "zlib", ""))
	zlib := descriptor("zlib", "1.3.1")

	for _, d := range []domain.PackageDescriptor{python, libssl, zlib} {
		if err := c.Add(&d); err != nil {
			t.Fatalf("failed to add %s: %v", d.Name.String(), err)
		}
	}

	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	walked := make([]string, 0, 3)
	for member := range c.Walk() {
		walked = append(walked, member.Name.String())
	}

	if len(walked) != 3 {
		t.Fatalf("expected 3 members walked, got %d", len(walked))
	}

	if walked[0] != "zlib" || walked[1] != "libssl" || walked[2] != "python3" {
		t.Errorf("unexpected walk order: %v", walked)
	}
}

func TestClosure_CanonicalBytes_Deterministic(t *testing.T) {
	build := func() *domain.ResolvedClosure {
		c := domain.NewClosure()
		python := descriptor("python3", "3.12.4", request(t, "zlib", "^1.3"))
		zlib := descriptor("zlib", "1.3.1")
		for _, d := range []domain.PackageDescriptor{python, zlib} {
			if err := c.Add(&d); err != nil {
				t.Fatalf("failed to add %s: %v", d.Name.String(), err)
			}
		}
		if err := c.Validate(); err != nil {
			t.Fatalf("unexpected validation error: %v", err)
		}
		return c
	}

	first := build().CanonicalBytes()
	second := build().CanonicalBytes()

	if !bytes.Equal(first, second) {
		t.Errorf("canonical serialization not deterministic:\n%s\n---\n%s", first, second)
	}
}

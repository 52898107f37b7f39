package templates

import (
	"testing"

	"github.com/MrSnakeDoc/landing/internal/domain"
)

func TestRegistry_Defaults(t *testing.T) {
	r := NewRegistry(Defaults())

	if _, ok := r.Lookup(DefaultTemplate); !ok {
		t.Errorf("%s should be registered", DefaultTemplate)
	}
	ftp, ok := r.Lookup(DefaultFtpTemplate)
	if !ok || !ftp.RequiresFtpURL {
		t.Errorf("%s should be registered and require an ftp url", DefaultFtpTemplate)
	}
	if _, ok := r.Lookup("unknown"); ok {
		t.Error("unknown template should not be found")
	}
	if r.LastReload().IsZero() {
		t.Error("LastReload should be set")
	}
}

func TestRegistry_Replace(t *testing.T) {
	r := NewRegistry(Defaults())
	r.Replace([]domain.Template{{Name: "b"}, {Name: "a"}, {Name: "b", Label: "dup"}})

	if r.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", r.Count())
	}
	all := r.All()
	if all[0].Name != "b" || all[1].Name != "a" {
		t.Errorf("All() should keep declaration order, got %+v", all)
	}
	if _, ok := r.Lookup(DefaultTemplate); ok {
		t.Error("Replace should drop previous templates")
	}

	// callers get a copy
	all[0].Name = "mutated"
	if _, ok := r.Lookup("b"); !ok {
		t.Error("mutating All() result should not affect the registry")
	}
}

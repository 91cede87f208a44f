package auth

import (
	"errors"
	"testing"

	"github.com/solacelabs/companiond/internal/core"
)

func TestStaticProvider(t *testing.T) {
	p, err := NewStaticProvider("tok1=u1:Alice, tok2=u2:Bob")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	ident, err := p.Authenticate("tok1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if ident.UserID != "u1" || ident.DisplayName != "Alice" {
		t.Errorf("identity = %+v", ident)
	}

	if _, err := p.Authenticate("nope"); !errors.Is(err, core.ErrUnauthenticated) {
		t.Errorf("unknown token: err = %v, want unauthenticated", err)
	}
}

func TestStaticProviderMissingIdentityFields(t *testing.T) {
	// A token that resolves but has no display name is as good as no
	// token at all.
	p, err := NewStaticProvider("tok=u1:")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := p.Authenticate("tok"); !errors.Is(err, core.ErrUnauthenticated) {
		t.Errorf("err = %v, want unauthenticated for incomplete identity", err)
	}
}

func TestStaticProviderMalformedSpec(t *testing.T) {
	for _, spec := range []string{"justatoken", "tok=nocolon"} {
		if _, err := NewStaticProvider(spec); err == nil {
			t.Errorf("spec %q should fail to parse", spec)
		}
	}
}

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/egov-platform/citizen-services/internal/app/domain/identity"
	"github.com/egov-platform/citizen-services/internal/errors"
)

func testUser() identity.User {
	return identity.User{ID: "user-1", Username: "alice"}
}

func TestIssueAndVerifyPair(t *testing.T) {
	m := NewManager("secret", 15*time.Minute, 24*time.Hour, nil)

	pair, err := m.IssuePair(testUser())
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	access, err := m.Verify(context.Background(), pair.Access)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if access.UserID != "user-1" || access.Username != "alice" || access.TokenType != TokenAccess {
		t.Fatalf("access claims = %+v", access)
	}

	refresh, err := m.Verify(context.Background(), pair.Refresh)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if refresh.TokenType != TokenRefresh {
		t.Fatalf("refresh type = %s", refresh.TokenType)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewManager("secret-a", time.Minute, time.Hour, nil)
	verifier := NewManager("secret-b", time.Minute, time.Hour, nil)

	pair, err := issuer.IssuePair(testUser())
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if _, err := verifier.Verify(context.Background(), pair.Access); !errors.Is(err, errors.CodeUnauthorized) {
		t.Fatalf("got %v, want unauthorized", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := NewManager("secret", time.Minute, time.Hour, nil)

	issuedAt := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return issuedAt }
	pair, err := m.IssuePair(testUser())
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	m.now = time.Now
	if _, err := m.Verify(context.Background(), pair.Access); !errors.Is(err, errors.CodeUnauthorized) {
		t.Fatalf("got %v, want unauthorized", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := NewManager("secret", time.Minute, time.Hour, nil)
	if _, err := m.Verify(context.Background(), "not-a-token"); !errors.Is(err, errors.CodeUnauthorized) {
		t.Fatalf("got %v, want unauthorized", err)
	}
}

func TestRevokeCutsOffEarlierTokens(t *testing.T) {
	m := NewManager("secret", time.Minute, time.Hour, NewMemoryRevocations())

	issuedAt := time.Now().Add(-10 * time.Second)
	m.now = func() time.Time { return issuedAt }
	pair, err := m.IssuePair(testUser())
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	m.now = time.Now
	if _, err := m.Verify(context.Background(), pair.Access); err != nil {
		t.Fatalf("pre-revocation verify: %v", err)
	}

	if err := m.Revoke(context.Background(), "user-1"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := m.Verify(context.Background(), pair.Access); !errors.Is(err, errors.CodeUnauthorized) {
		t.Fatalf("post-revocation verify: got %v, want unauthorized", err)
	}

	// Tokens issued after the cutoff are fine. The iat claim has
	// second-level precision, so issue safely past the cutoff.
	m.now = func() time.Time { return time.Now().Add(2 * time.Second) }
	fresh, err := m.IssuePair(testUser())
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if _, err := m.Verify(context.Background(), fresh.Access); err != nil {
		t.Fatalf("fresh verify: %v", err)
	}
}

func TestRevocationDoesNotAffectOtherUsers(t *testing.T) {
	m := NewManager("secret", time.Minute, time.Hour, NewMemoryRevocations())

	issuedAt := time.Now().Add(-10 * time.Second)
	m.now = func() time.Time { return issuedAt }
	alice, err := m.IssuePair(identity.User{ID: "alice"})
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	bob, err := m.IssuePair(identity.User{ID: "bob"})
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	m.now = time.Now
	if err := m.Revoke(context.Background(), "alice"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if _, err := m.Verify(context.Background(), alice.Access); err == nil {
		t.Fatal("alice's token must be revoked")
	}
	if _, err := m.Verify(context.Background(), bob.Access); err != nil {
		t.Fatalf("bob's token must survive: %v", err)
	}
}

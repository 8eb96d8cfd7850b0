package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParse(t *testing.T) {
	m := NewTokenManager("secret", 0, "marina")
	if m.TTL() != DefaultTokenTTL {
		t.Fatalf("TTL() = %v, want %v", m.TTL(), DefaultTokenTTL)
	}

	token, err := m.Generate("42", "skipper@example.com")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.UserID != "42" || claims.Username != "skipper@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != "marina" {
		t.Errorf("Issuer = %q", claims.Issuer)
	}
	exp := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time)
	if exp != DefaultTokenTTL {
		t.Errorf("lifetime = %v, want %v", exp, DefaultTokenTTL)
	}
}

func TestParseRejects(t *testing.T) {
	m := NewTokenManager("secret", time.Hour, "marina")
	other := NewTokenManager("other", time.Hour, "marina")

	foreign, _ := other.Generate("1", "a@b.c")
	if _, err := m.Parse(foreign); err == nil {
		t.Error("token signed with another secret should be rejected")
	}

	expired := NewTokenManager("secret", time.Hour, "marina")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _ := expired.Generate("1", "a@b.c")
	if _, err := m.Parse(old); err == nil {
		t.Error("expired token should be rejected")
	}

	stranger := NewTokenManager("secret", time.Hour, "elsewhere")
	misissued, _ := stranger.Generate("1", "a@b.c")
	if _, err := m.Parse(misissued); err == nil {
		t.Error("token from another issuer should be rejected")
	}
	if _, err := NewTokenManager("secret", time.Hour, "").Parse(misissued); err != nil {
		t.Errorf("manager without issuer should accept any issuer: %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "1"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := m.Parse(unsigned); err == nil {
		t.Error("unsigned token should be rejected")
	}

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{UserID: "1"})
	strong, _ := hs512.SignedString([]byte("secret"))
	if _, err := m.Parse(strong); err == nil {
		t.Error("HS512 token should be rejected")
	}

	anonymous := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{})
	noSubject, _ := anonymous.SignedString([]byte("secret"))
	if _, err := m.Parse(noSubject); err == nil {
		t.Error("token without id should be rejected")
	}

	if _, err := m.Parse("garbage"); err == nil {
		t.Error("garbage should be rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "hunter22" {
		t.Fatal("hash must not equal the password")
	}
	if !ComparePassword(hash, "hunter22") {
		t.Error("ComparePassword() should accept the right password")
	}
	if ComparePassword(hash, "hunter23") {
		t.Error("ComparePassword() should reject a wrong password")
	}
	if _, err := HashPassword("x", 99); err == nil {
		t.Error("an out of range cost should fail")
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if IdentityFromContext(ctx) != nil {
		t.Fatal("empty context should have no identity")
	}
	var nobody *Identity
	if nobody.IsAdmin() {
		t.Fatal("nil identity is not admin")
	}

	ctx = WithIdentity(ctx, &Identity{UserID: "7", Role: RoleAdmin})
	ident := IdentityFromContext(ctx)
	if ident == nil || ident.UserID != "7" || !ident.IsAdmin() {
		t.Fatalf("unexpected identity %+v", ident)
	}
}

package security

import (
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, errHash := HashPassword("opensesame")
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	if hash == "opensesame" {
		t.Fatal("expected hash to differ from plaintext")
	}
	if !CheckPassword(hash, "opensesame") {
		t.Fatal("expected matching password to verify")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatal("expected mismatched password to fail")
	}
}

func TestGenerateRandomStringUnique(t *testing.T) {
	first, errFirst := GenerateRandomString(32)
	if errFirst != nil {
		t.Fatalf("generate: %v", errFirst)
	}
	second, errSecond := GenerateRandomString(32)
	if errSecond != nil {
		t.Fatalf("generate: %v", errSecond)
	}
	if first == "" || first == second {
		t.Fatalf("expected distinct non-empty strings, got %q and %q", first, second)
	}
}

func TestAdminTokenRoundTrip(t *testing.T) {
	token, errSign := SignAdminToken("secret", time.Hour, 7, "root")
	if errSign != nil {
		t.Fatalf("sign token: %v", errSign)
	}

	claims, errParse := ParseAdminToken("secret", token)
	if errParse != nil {
		t.Fatalf("parse token: %v", errParse)
	}
	if claims.AdminID != 7 || claims.Username != "root" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, errWrong := ParseAdminToken("other", token); errWrong == nil {
		t.Fatal("expected wrong secret to fail")
	}
}

func TestSignAdminTokenRequiresSecret(t *testing.T) {
	if _, err := SignAdminToken("", time.Hour, 1, "root"); err == nil {
		t.Fatal("expected error without secret")
	}
}

func TestParseAdminTokenExpired(t *testing.T) {
	token, errSign := SignAdminToken("secret", -time.Minute, 7, "root")
	if errSign != nil {
		t.Fatalf("sign token: %v", errSign)
	}
	if _, err := ParseAdminToken("secret", token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

package auth

import (
	"testing"
	"time"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	token, err := manager.GenerateToken("user-123", "Alice", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken returned error: %v", err)
	}

	if claims.UserID != "user-123" {
		t.Errorf("UserID = %q", claims.UserID)
	}
	if claims.Name != "Alice" {
		t.Errorf("Name = %q", claims.Name)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("Email = %q", claims.Email)
	}
	if claims.Subject != "alice@example.com" {
		t.Errorf("Subject = %q, want the email", claims.Subject)
	}
}

func TestJWTManager_WrongSecret(t *testing.T) {
	manager := NewJWTManager("secret-one", time.Hour)
	other := NewJWTManager("secret-two", time.Hour)

	token, err := manager.GenerateToken("user-123", "Alice", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	if _, err := other.ValidateToken(token); err == nil {
		t.Error("token signed with a different secret validated")
	}
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	manager := NewJWTManager("test-secret", -time.Minute)

	token, err := manager.GenerateToken("user-123", "Alice", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	if _, err := manager.ValidateToken(token); err == nil {
		t.Error("expired token validated")
	}
}

func TestJWTManager_GarbageToken(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	if _, err := manager.ValidateToken("not.a.token"); err == nil {
		t.Error("garbage input validated")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "password123" {
		t.Fatal("hash equals the plaintext password")
	}

	if !CheckPasswordHash("password123", hash) {
		t.Error("correct password rejected")
	}
	if CheckPasswordHash("wrong-password", hash) {
		t.Error("wrong password accepted")
	}
}

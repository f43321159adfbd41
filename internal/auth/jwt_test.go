package auth

import (
	"testing"
	"time"

	"github.com/librenovela/librenovela/internal/models"
)

func testUser() *models.User {
	user := &models.User{
		Nickname: "validnick",
		Email:    "a@b.com",
		Role:     models.RoleUser,
		Status:   models.StatusActive,
	}
	user.ID = 7
	return user
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	manager := NewTokenManager("secreto", TokenTTL)

	token, err := manager.Issue(testUser())

	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := manager.Verify(token)

	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if claims.UserID != 7 || claims.Nickname != "validnick" || claims.Email != "a@b.com" {
		t.Errorf("claims do not round-trip: %+v", claims)
	}

	if claims.Role != models.RoleUser || claims.Status != models.StatusActive {
		t.Errorf("role/status claims do not round-trip: %+v", claims)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secreto", TokenTTL).Issue(testUser())

	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := NewTokenManager("otro-secreto", TokenTTL).Verify(token); err == nil {
		t.Fatal("expected verification to fail with a different secret")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	manager := NewTokenManager("secreto", -time.Minute)

	token, err := manager.Issue(testUser())

	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := manager.Verify(token); err == nil {
		t.Fatal("expected verification to fail for an expired token")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	if _, err := NewTokenManager("secreto", TokenTTL).Verify("no-es-un-token"); err == nil {
		t.Fatal("expected verification to fail for a malformed token")
	}
}

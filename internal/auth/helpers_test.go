package auth_test

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/unclebandit/crowdfund-backend/internal/address"
)

// forgeSubject builds a claims segment naming subject, without a matching signature.
func forgeSubject(t *testing.T, subject address.Address) string {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"sub": subject.String(),
		"aud": []string{"crowdfund"},
		"iat": issued.Unix(),
		"exp": issued.Add(time.Minute).Unix(),
	})
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

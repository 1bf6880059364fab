package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/vncsmyrnk/polls/internal/core/ports"
	"google.golang.org/api/idtoken"
)

type GoogleVerifier struct{}

func NewVerifier() ports.TokenVerifier {
	return &GoogleVerifier{}
}

// Verify checks the ID token signature and audience with Google's public
// keys and returns the signed-in account.
func (v *GoogleVerifier) Verify(ctx context.Context, token string, clientID string) (*ports.TokenPayload, error) {
	payload, err := idtoken.Validate(ctx, token, clientID)
	if err != nil {
		return nil, err
	}
	return payloadFromClaims(payload.Claims)
}

// payloadFromClaims only accepts addresses Google has verified.
func payloadFromClaims(claims map[string]any) (*ports.TokenPayload, error) {
	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return nil, errors.New("email not found in claims")
	}

	if verified, _ := claims["email_verified"].(bool); !verified {
		return nil, fmt.Errorf("email %s is not verified", email)
	}

	name, _ := claims["name"].(string)
	if name == "" {
		name = email
	}
	return &ports.TokenPayload{Email: email, Name: name}, nil
}

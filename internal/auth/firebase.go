package auth

import (
	"context"

	fbauth "firebase.google.com/go/v4/auth"
)

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier checks Firebase Auth ID tokens issued to the mobile clients.
type FirebaseVerifier struct {
	client idTokenVerifier
}

func NewFirebaseVerifier(client *fbauth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	tok, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		if fbauth.IsIDTokenExpired(err) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	email, _ := tok.Claims["email"].(string)
	return &Identity{UserID: tok.UID, Email: email}, nil
}

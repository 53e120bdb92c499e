package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// verifyFirebaseToken checks a Firebase ID token and reads the profile claims
// Firebase puts in it.
func verifyFirebaseToken(ctx context.Context, verifier TokenVerifier, idToken string) (Identity, error) {
	token, err := verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired ID token")
	}

	identity := Identity{UID: token.UID}
	if name, ok := token.Claims["name"].(string); ok {
		identity.Name = name
	}
	if picture, ok := token.Claims["picture"].(string); ok {
		identity.Avatar = picture
	}
	if email, ok := token.Claims["email"].(string); ok {
		identity.Email = email
	}
	if identity.Name == "" {
		identity.Name = "Anonymous"
	}
	return identity, nil
}

package web

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/keyauth"
)

var errInvalidToken = errors.New("invalid bearer token")

// BearerAuth rejects requests whose Authorization bearer token is not token.
func BearerAuth(token string) fiber.Handler {
	want := sha256.Sum256([]byte(token))

	return keyauth.New(keyauth.Config{
		Validator: func(_ fiber.Ctx, key string) (bool, error) {
			got := sha256.Sum256([]byte(key))
			if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
				return false, errInvalidToken
			}

			return true, nil
		},
		ErrorHandler: func(_ fiber.Ctx, err error) error {
			if errors.Is(err, errInvalidToken) {
				return fiber.NewError(fiber.StatusUnauthorized, errInvalidToken.Error())
			}

			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		},
	})
}

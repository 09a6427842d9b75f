package auth

import (
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TwoFactorAuthenticator issues and checks time-based one-time codes.
type TwoFactorAuthenticator interface {
	GenerateSecret(accountName string) (otpURI string, secret string, err error)
	VerifyCode(secret, code string) bool
}

type Authenticator struct {
	issuer string
}

func NewAuthenticator(issuer string) *Authenticator {
	return &Authenticator{issuer: issuer}
}

// GenerateSecret uses SHA1 for Google Authenticator compatibility.
func (g *Authenticator) GenerateSecret(accountName string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      g.issuer,
		AccountName: accountName,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate totp secret: %w", err)
	}
	return key.URL(), key.Secret(), nil
}

func (g *Authenticator) VerifyCode(secret, code string) bool {
	return totp.Validate(code, secret)
}

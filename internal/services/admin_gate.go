package services

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// AdminGate is the stateless shared-secret check in front of admin writes.
//
// There is exactly one admin identity. Login exchanges its id and passphrase
// for Secret; every admin write then presents Secret in a header. The secret
// comes from configuration and is never rotated or expired by the server.
type AdminGate struct {
	ID             string
	Passphrase     string
	PassphraseHash string // bcrypt; used instead of Passphrase when set
	Secret         string
}

// Check returns ErrAdminForbidden unless credential equals the secret.
// Missing and wrong credentials take the same path and produce the same
// error. An unconfigured secret rejects everything.
func (g *AdminGate) Check(credential string) error {
	if g == nil || g.Secret == "" {
		return ErrAdminForbidden
	}
	if subtle.ConstantTimeCompare([]byte(credential), []byte(g.Secret)) != 1 {
		return ErrAdminForbidden
	}
	return nil
}

// Login returns the admin secret for a matching id and passphrase, or
// ErrBadCredentials. Both fields are always compared so a wrong id and a
// wrong passphrase cost the same.
func (g *AdminGate) Login(id, passphrase string) (string, error) {
	if g == nil || g.Secret == "" || (g.Passphrase == "" && g.PassphraseHash == "") {
		return "", ErrBadCredentials
	}
	idOK := subtle.ConstantTimeCompare([]byte(id), []byte(g.ID)) == 1
	passOK := g.checkPassphrase(passphrase)
	if !idOK || !passOK {
		return "", ErrBadCredentials
	}
	return g.Secret, nil
}

func (g *AdminGate) checkPassphrase(passphrase string) bool {
	if g.PassphraseHash != "" {
		err := bcrypt.CompareHashAndPassword([]byte(g.PassphraseHash), []byte(passphrase))
		return err == nil
	}
	return subtle.ConstantTimeCompare([]byte(passphrase), []byte(g.Passphrase)) == 1
}

// HashPassphrase returns a bcrypt hash suitable for ADMIN_PASSPHRASE_HASH.
func HashPassphrase(passphrase string) (string, error) {
	if passphrase == "" {
		return "", errors.New("passphrase must not be empty")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

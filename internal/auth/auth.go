// Package auth is the static demo directory. Any production deployment must
// replace this with real credential verification.
package auth

import "github.com/innotech/hrbot/internal/models"

type account struct {
	identity models.Identity
	password string
}

// Directory resolves email/password pairs against a fixed employee list plus
// one HR admin account.
type Directory struct {
	accounts []account
}

func NewDirectory() *Directory {
	return &Directory{accounts: []account{
		{identity: models.Identity{ID: "u1", Email: "alice@company.com", Name: "Alice"}, password: "password"},
		{identity: models.Identity{ID: "u2", Email: "bob@company.com", Name: "Bob"}, password: "password"},
		{identity: models.Identity{ID: "u3", Email: "charlie@company.com", Name: "Charlie"}, password: "password"},
		{identity: models.Identity{ID: "hr1", Email: "hr@company.com", Name: "HR Admin", HR: true}, password: "hr123"},
	}}
}

// Authenticate returns the matching identity, or false when either the
// email is unknown or the password does not match.
func (d *Directory) Authenticate(email, password string) (models.Identity, bool) {
	for _, acc := range d.accounts {
		if acc.identity.Email == email && acc.password == password {
			return acc.identity, true
		}
	}
	return models.Identity{}, false
}

// internal/api/auth.go
package api

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"scoring-api/internal/common/config"
)

// Authenticator derives the expected token for a request identity and
// compares it against the supplied one. Admin tokens rotate hourly off the
// admin salt; regular tokens are a pure function of account, login and the
// shared salt.
type Authenticator struct {
	salt      string
	adminSalt string
	now       func() time.Time
}

func NewAuthenticator(cfg config.AuthConfig) *Authenticator {
	return &Authenticator{
		salt:      cfg.Salt,
		adminSalt: cfg.AdminSalt,
		now:       time.Now,
	}
}

// CheckAuth is a boolean gate: failure is an expected outcome, not an error.
func (a *Authenticator) CheckAuth(req *MethodRequest) bool {
	var digest string
	if req.IsAdmin() {
		digest = tokenDigest(a.now().Format("2006010215") + a.adminSalt)
	} else {
		digest = tokenDigest(req.Account + req.Login + a.salt)
	}
	return subtle.ConstantTimeCompare([]byte(digest), []byte(req.Token)) == 1
}

func tokenDigest(payload string) string {
	sum := sha512.Sum512([]byte(payload))
	return hex.EncodeToString(sum[:])
}

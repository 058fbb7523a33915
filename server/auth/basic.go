package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/crypto/bcrypt"
)

var Logger = logger.GetLogger("auth")

// UserKey is the gin context key holding the authenticated username
const UserKey = "user"

// Realm is sent in the WWW-Authenticate header of rejected requests
const Realm = "ddoc"

// Authenticator verifies Basic auth credentials against a fixed user table.
//
// A successfully verified password is remembered as a SHA-256 digest per user,
// so bcrypt runs once per user. A wrong password never enters the cache.
//
// Thread-safety: All methods are thread-safe.
type Authenticator struct {
	users    Users
	verified *xsync.MapOf[string, [sha256.Size]byte]
}

// NewAuthenticator creates an authenticator for the given users.
// The table is copied and can not be changed afterwards.
func NewAuthenticator(users Users) *Authenticator {
	copied := make(Users, len(users))
	for name, hash := range users {
		copied[name] = hash
	}
	return &Authenticator{
		users:    copied,
		verified: xsync.NewMapOf[string, [sha256.Size]byte](),
	}
}

// Verify reports whether password is valid for username.
func (a *Authenticator) Verify(username, password string) bool {
	hash, ok := a.users[username]
	if !ok {
		return false
	}

	digest := sha256.Sum256([]byte(password))
	if cached, ok := a.verified.Load(username); ok {
		return subtle.ConstantTimeCompare(cached[:], digest[:]) == 1
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return false
	}
	a.verified.Store(username, digest)
	return true
}

// Middleware returns a gin middleware that rejects requests without valid
// Basic auth credentials with 401 and stores the username under UserKey.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			reject(c, "missing basic auth credentials")
			return
		}
		if !a.Verify(username, password) {
			Logger.Warningf("rejected credentials for user %q from %s", username, c.ClientIP())
			reject(c, "invalid credentials")
			return
		}

		c.Set(UserKey, username)
		c.Next()
	}
}

func reject(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Basic realm="`+Realm+`"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

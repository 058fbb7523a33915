package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	return hash
}

func TestParseUsers(t *testing.T) {
	alice := mustHash(t, "wonderland")
	bob := mustHash(t, "builder")

	users, err := ParseUsers(" alice=" + alice + " , bob=" + bob + ",")
	require.NoError(t, err)
	require.Equal(t, Users{"alice": alice, "bob": bob}, users)

	empty, err := ParseUsers("")
	require.NoError(t, err)
	require.Empty(t, empty)

	_, err = ParseUsers("alice")
	require.Error(t, err)

	_, err = ParseUsers("alice=plaintext")
	require.Error(t, err)

	_, err = ParseUsers("alice=" + alice + ",alice=" + bob)
	require.Error(t, err)

	_, err = ParseUsers("=" + alice)
	require.Error(t, err)
}

func TestLoadUsersFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	alice := mustHash(t, "wonderland")

	require.NoError(t, afero.WriteFile(fs, "users", []byte("# admins\n\nalice:"+alice+"\n"), 0o600))
	users, err := LoadUsersFile(fs, "users")
	require.NoError(t, err)
	require.Equal(t, Users{"alice": alice}, users)

	require.NoError(t, afero.WriteFile(fs, "broken", []byte("alice "+alice+"\n"), 0o600))
	_, err = LoadUsersFile(fs, "broken")
	require.ErrorContains(t, err, "broken:1")

	_, err = LoadUsersFile(fs, "missing")
	require.Error(t, err)

	// merging the file and the flag list rejects duplicates
	require.Error(t, users.Merge(Users{"alice": alice}))
	require.NoError(t, users.Merge(Users{"bob": mustHash(t, "builder")}))
	require.Len(t, users, 2)
}

func TestAuthenticator(t *testing.T) {
	gin.SetMode(gin.TestMode)

	a := NewAuthenticator(Users{"alice": mustHash(t, "wonderland")})

	t.Run("Verify", func(t *testing.T) {
		require.False(t, a.Verify("alice", "wrong"))
		require.True(t, a.Verify("alice", "wonderland"))
		// second call is answered from the cache
		require.True(t, a.Verify("alice", "wonderland"))
		require.False(t, a.Verify("alice", "wrong"))
		require.False(t, a.Verify("mallory", "wonderland"))
	})

	g := gin.New()
	g.GET("/", a.Middleware(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(UserKey))
	})

	t.Run("NoCredentials", func(t *testing.T) {
		rw := httptest.NewRecorder()
		g.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusUnauthorized, rw.Code)
		require.Equal(t, `Basic realm="ddoc"`, rw.Header().Get("WWW-Authenticate"))
		require.JSONEq(t, `{"error":"missing basic auth credentials"}`, rw.Body.String())
	})

	t.Run("WrongPassword", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.SetBasicAuth("alice", "queen")
		rw := httptest.NewRecorder()
		g.ServeHTTP(rw, req)

		require.Equal(t, http.StatusUnauthorized, rw.Code)
	})

	t.Run("Valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.SetBasicAuth("alice", "wonderland")
		rw := httptest.NewRecorder()
		g.ServeHTTP(rw, req)

		require.Equal(t, http.StatusOK, rw.Code)
		require.Equal(t, "alice", rw.Body.String())
	})
}

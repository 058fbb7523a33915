package http

import (
	"errors"
	"net/http"

	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/gin-gonic/gin"
)

// errBadRequest marks errors caused by the request itself (body, query)
var errBadRequest = errors.New("bad request")

// statusOf maps an error to the HTTP status code returned to the caller
func statusOf(err error) int {
	if errors.Is(err, errBadRequest) {
		return http.StatusBadRequest
	}

	switch store.CodeOf(err) {
	case store.ErrCNotFound, store.ErrCCollectionNotFound:
		return http.StatusNotFound
	case store.ErrCInvalidName:
		return http.StatusBadRequest
	default:
		// Serialization errors of caller payloads are caught as errBadRequest
		// before they reach the store, so the rest is a server side failure.
		return http.StatusInternalServerError
	}
}

// abortWithError writes the error as {"error": msg} with the mapped status
func abortWithError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		Logger.Errorf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/gin-gonic/gin"
)

// --------------------------------------------------------------------------
// Collection Handlers
// --------------------------------------------------------------------------

func (s *Server) listCollections(c *gin.Context) {
	c.JSON(http.StatusOK, s.db.Collections())
}

func (s *Server) createCollection(c *gin.Context) {
	name := c.Param("name")
	if _, err := s.db.CreateCollection(name); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"name": name})
}

func (s *Server) dropCollection(c *gin.Context) {
	if err := s.db.DropCollection(c.Param("name")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --------------------------------------------------------------------------
// Document Handlers
// --------------------------------------------------------------------------

func (s *Server) insertDocument(c *gin.Context) {
	ttl, err := ttlParam(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	body, err := jsonBody(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	col, err := s.db.Collection(c.Param("name"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	doc, err := col.Insert(body, ttl)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (s *Server) listDocuments(c *gin.Context) {
	col, err := s.db.Collection(c.Param("name"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	docs, err := col.FindAll()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (s *Server) getDocument(c *gin.Context) {
	col, err := s.db.Collection(c.Param("name"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	id := c.Param("id")
	doc, ok, err := col.Find(id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !ok {
		abortWithError(c, store.NewError(store.ErrCNotFound, fmt.Sprintf("document %s not found in %s", id, col.Name()), nil))
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) updateDocument(c *gin.Context) {
	body, err := jsonBody(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	col, err := s.db.Collection(c.Param("name"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	doc, err := col.Update(c.Param("id"), body)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) deleteDocument(c *gin.Context) {
	col, err := s.db.Collection(c.Param("name"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := col.Delete(c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --------------------------------------------------------------------------
// Operational Handlers
// --------------------------------------------------------------------------

func (s *Server) health(c *gin.Context) {
	c.String(http.StatusOK, "healthy")
}

func (s *Server) info(c *gin.Context) {
	c.JSON(http.StatusOK, s.db.Info())
}

// --------------------------------------------------------------------------
// Request Helpers
// --------------------------------------------------------------------------

// jsonBody reads the request body and checks that it is a single JSON value
func jsonBody(c *gin.Context) (json.RawMessage, error) {
	body, err := c.GetRawData()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %v", errBadRequest, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: body is not valid JSON", errBadRequest)
	}
	return body, nil
}

// ttlParam parses the optional ttl query parameter (seconds)
func ttlParam(c *gin.Context) (*int64, error) {
	raw, ok := c.GetQuery("ttl")
	if !ok {
		return nil, nil
	}
	ttl, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: ttl must be an integer number of seconds: %q", errBadRequest, raw)
	}
	return &ttl, nil
}

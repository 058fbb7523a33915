// Package http exposes a store.Database as a JSON REST API built on gin.
//
// Routes:
//
//	GET    /health                              liveness probe (no auth)
//	GET    /metrics                             Prometheus metrics (no auth)
//	GET    /info                                database statistics
//	GET    /collections                         list collection names
//	POST   /collections/:name                   create a collection (201)
//	DELETE /collections/:name                   drop a collection (204)
//	POST   /collections/:name/documents?ttl=N   insert a document (201)
//	GET    /collections/:name/documents         list all documents
//	GET    /collections/:name/documents/:id     get one document
//	PUT    /collections/:name/documents/:id     replace the data of a document
//	DELETE /collections/:name/documents/:id     delete a document (204)
//
// All routes except /health and /metrics require HTTP Basic auth (see package
// auth). Errors are returned as {"error": "<message>"}: unknown documents and
// collections map to 404, invalid bodies, ttl values and collection names to
// 400, missing or wrong credentials to 401 and everything else to 500.
//
// Request bodies are stored as they are sent (compacted), so any JSON value is
// a valid document: objects, arrays, strings, numbers, booleans and null.
package http

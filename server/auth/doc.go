// Package auth implements HTTP Basic authentication for the ddoc server.
//
// Users are configured as a table of username to bcrypt hash, either from a
// comma-separated flag value (ParseUsers) or from an htpasswd style file
// (LoadUsersFile). The Authenticator checks credentials against that table and
// provides a gin middleware that rejects unauthenticated requests with 401.
package auth

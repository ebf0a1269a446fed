// Package api is the HTTP client for the attendance backend and the face
// service. Every request carries the bearer token and an X-Request-ID;
// replies use the {success, message, data} envelope and any 401 matches
// ErrUnauthorized.
package api

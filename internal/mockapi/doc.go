// Package mockapi is an in-memory attendance backend built on gin.
//
// It serves the same routes as the real backend (sign-in, periods, today,
// mark, stats) plus the face service health probe, signs HS256 tokens, and
// detects duplicate marks per user, period and day. A Recognizer decides
// whether a capture matches the signed-in user, which lets demos and tests
// exercise the face mismatch path.
package mockapi

// Package app is the composition root for rollcall.
//
// Run loads the config, opens the zap file logger, signs in (reusing a
// configured token while it is still valid), picks a frame source and builds
// the session. It refreshes once so the first frame has data, then starts
// two pollers and hands control to the UI:
//
//	refresh      catalog, today's marks and stats every refresh_seconds
//	face-health  face service probe every health_seconds (face_api_url only)
//
// Pollers log failures and keep going; consecutive failures double the wait
// up to maxBackoff. Only startup problems (config, logger, client, sign-in,
// capture setup) are returned from Run.
package app

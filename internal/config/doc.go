// Package config loads the dashboard configuration.
//
// # Resolution
//
//  1. The TOML file at the given path, or ~/.config/rollcall/config.toml.
//     A missing file is not an error; defaults apply.
//  2. A .env file in the same directory (ROLLCALL_* keys only).
//  3. The process environment, which wins over both.
//
// The merged Config is validated before it is returned, so callers never see
// an out-of-range interval or a half-specified credential pair.
//
// # Keys
//
//	api_url          attendance backend (default http://127.0.0.1:8080)
//	face_api_url     face service, enables the health indicator
//	username         sign-in name (ROLLCALL_USERNAME)
//	password         sign-in password (ROLLCALL_PASSWORD)
//	token            pre-issued bearer token (ROLLCALL_TOKEN)
//	refresh_seconds  catalog and ledger poll cadence (default 60)
//	display_seconds  how long a capture outcome stays up (default 3)
//	health_seconds   face service probe cadence (default 30)
//	min_image_bytes  shortest acceptable frame (default 100)
//	capture_file     still image written by an external camera tool
//	capture_command  command printing one image to stdout
//	capture_width    frames wider than this are scaled down (default 640)
//	log_path         zap log file (default ~/.local/share/rollcall/rollcall.log)
//	log_level        debug, info, warn or error
//	demo             submit a synthetic frame when no camera is configured
//
// Paths beginning with ~ are expanded against the user's home directory.
package config

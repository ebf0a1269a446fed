package ui

import "time"

// LayoutCompactWidth is the width below which the header drops labels.
const LayoutCompactWidth = 100

// LogReadLimit is how many lines of the log file are read per refresh.
const LogReadLimit = 1000

// Timing.
const (
	// DefaultUIInterval is the snapshot refresh cadence.
	DefaultUIInterval = time.Second

	captureTimeout = 20 * time.Second
	refreshTimeout = 10 * time.Second
)

// Package session ties the period catalog, the attendance ledger and the
// capture pipeline to one signed-in user.
//
// Refresh fetches periods, today's marks and stats concurrently; overlapping
// calls share one fetch. Snapshot returns a consistent copy with the derived
// status, timeline and summary, ready to render. Bus carries
// fire-and-forget notifications such as attendance-updated. Watch samples
// the clock and announces when a period opens or closes.
package session

// Package period models the day's attendance windows and decides which one,
// if any, is open right now.
//
// Times are same-day local times held as minutes since midnight (TimeOfDay),
// so comparisons match a lexicographic comparison of zero-padded "HH:MM"
// strings. Both window bounds are inclusive: a period running 09:30-10:20 is
// open at 10:20 and closed at 10:21.
//
// Resolve is pure and cheap; callers re-run it on every clock sample and
// every catalog refresh instead of caching the result. When windows overlap
// the first period in catalog order wins.
//
// A Sampler wraps an injectable Clock so tests can drive time with a
// ManualClock instead of sleeping.
package period

// Package attendance runs capture attempts against the period open right
// now and turns every result into a Notice the user can read.
//
// # Attempt lifecycle
//
// A Pipeline handles one attempt at a time:
//
//	Idle -> Validating -> Submitting -> Succeeded | AlreadyMarked | Rejected | Failed
//
// Validation fails fast, in order: no active period, a break period, then an
// empty or too-short frame. These pre-flight failures return an *Error and
// never reach the network. A period the ledger already shows as marked
// resolves to AlreadyMarked locally. A capture while another attempt is in
// flight returns ErrBusy.
//
// Terminal states stay visible for DisplayFor and then settle back to Idle
// on the next read.
//
// # Classification
//
// Backend replies are matched against Rules, case-insensitively, so the
// same message text maps to the same Category wherever it came from. The
// defaults recognise duplicate marks and face mismatches; anything else is a
// TransportFailure with a generic message.
//
// Success and AlreadyMarked both mark the period optimistically in the
// ledger and notify the Notifier, which triggers a refresh that confirms it.
package attendance

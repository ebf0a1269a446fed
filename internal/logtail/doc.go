// Package logtail reads the tail of the dashboard's log file for the Logs
// view.
//
// Read keeps a ring buffer of maxLines entries, so memory stays bounded no
// matter how large the file grows. A missing file reads as empty.
//
// The file logger writes one JSON object per line. ParseEntry decodes the
// timestamp, level, logger name and message, and gathers every other key
// into Fields. Lines that fail to decode are kept verbatim in Raw so a
// partially written line never hides the rest of the log.
package logtail

// Package ui is the Bubble Tea terminal interface.
//
// The model never touches the network on the UI loop. A one-second tick
// pulls a session.Snapshot; captures and manual refreshes run as commands
// and report back as messages. Four views share a header and command bar:
//
//	Welcome     greeting and the day's present/absent/percentage tally
//	Attendance  status card for the open period; c captures and marks
//	Timetable   every period with Marked, Open, Missed, Upcoming or Break
//	Logs        the JSON log file, decoded by logtail, with follow mode
//
// Theme and start view persist through the prefs package whenever they
// change.
package ui

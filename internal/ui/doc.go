// Package ui renders rplisten in the terminal.
//
// Two styles of output are provided. The interactive screen (Model, Run) is
// a Bubble Tea program showing the device selector, the manual address
// field, the session status and the start/stop controls. Which controls
// are usable comes from session.Controls, so the screen never offers an
// action the session machine would reject.
//
// The Printer renders headers and result boxes for the one-shot scan and
// listen commands.
//
// Logging is silent unless RPLISTEN_LOG_LEVEL or --log-level is set, so the
// curated output is not interleaved with log lines.
package ui

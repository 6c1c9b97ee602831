// Package logtail reads the end of the frida log file for the logs command.
//
// Read keeps a ring buffer of the last N matching lines, so memory stays
// bounded by N however large the file grows. A minimum level can be given;
// lines are parsed in the "timestamp - logger - LEVEL - message" format the
// logging package writes, and lines that do not parse (panic traces, output
// from other tools) are dropped when filtering.
//
// Colorize highlights the level field for terminal output.
package logtail

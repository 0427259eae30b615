// Package logs reads grd's own log file for the `grd logs` command: the last
// lines on demand, and new lines as they are appended when following.
package logs

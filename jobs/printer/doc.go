// Package printer renders the mirror's state for a terminal.
package printer

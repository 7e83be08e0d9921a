// Package database is the optional postgres sink for fill events.
package database

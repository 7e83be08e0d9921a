// Package grpcserver serves read-only queries over the mirrored books and
// subaccounts.
package grpcserver

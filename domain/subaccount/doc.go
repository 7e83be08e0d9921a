// Package subaccount keeps per-subaccount perpetual and asset positions
// built from one snapshot and merged deltas.
package subaccount

// Package reporter publishes subaccount changes to kafka.
package reporter

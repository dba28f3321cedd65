// Package clientview formats and orders clients for tabular display.
package clientview

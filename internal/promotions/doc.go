// Package promotions reads the promotion catalog offered during client calls.
package promotions

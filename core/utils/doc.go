// Package utils holds small helpers shared across packages, mainly conversion of
// loosely typed JSON values (numbers as float64, flags as 0/1, nulls) coming back
// from the remote stores.
package utils

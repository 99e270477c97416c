// Package modules provides the built-in behaviour modules pipe types are composed from.
package modules

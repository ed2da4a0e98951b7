// Package urls provides centralized constants for the documentation URLs
// printed by the command-line and interactive front ends.
//
// Usage:
//
//	import "github.com/muurk/rplisten/internal/urls"
//
//	fmt.Printf("For more information, see: %s\n", urls.ConnectTroubleshooting)
package urls

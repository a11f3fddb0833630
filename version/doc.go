// Package version exposes build metadata for the /info endpoint, the CLI
// banner and outbound User-Agent headers.
package version

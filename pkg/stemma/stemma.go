// Package stemma holds module-level metadata.
package stemma

// Version is the stemma release version.
const Version = "0.1.0"

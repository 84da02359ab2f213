// Package types defines the entity types, identity marker, and standard
// errors shared by the stemma storage and resolution layers.
package types

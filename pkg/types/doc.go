// Package types defines the entity types, the Backend and Table interfaces,
// store-name constants, and the standard errors shared by every storage
// backend of neuronotes.
//
// Entities cross the repository boundary as camelCase JSON objects; column
// names in storage are underscore_case. The mapping between the two lives in
// internal/repo and is identical for every backend.
package types

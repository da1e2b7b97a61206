// Package types holds the shared data model of the checkout engine: entry
// descriptors for the three comparison sources, three-way deltas, plan
// items, strategy flags, callback signatures, and the filesystem
// abstraction. It has no dependencies on other castor packages so every
// stage of the pipeline can share it without cycles.
package types

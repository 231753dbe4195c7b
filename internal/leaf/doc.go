// Package leaf provides scripted leaf nodes: boolean expr-lang conditions
// evaluated against the blackboard, and JavaScript actions run on a shared
// goja event loop.
//
// Compiled programs of both kinds are kept in bounded LRU caches keyed by
// source, so templates instantiated into many trees compile each
// expression once.
package leaf

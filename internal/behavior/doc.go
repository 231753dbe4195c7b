// Package behavior implements a tick-driven behavior tree engine.
//
// A [Tree] owns a flat list of root nodes, a [Blackboard] and an execution
// cursor. The host calls [Tree.Tick] once per frame; a node that needs more
// than one frame returns [Running] and the tree resumes at that node on the
// next tick. Nothing in this package blocks: multi-frame work is expressed
// solely through repeated Running results.
//
// Nodes are plain Go values implementing [Node], optionally [Resetter],
// [Preparer] and [Composite]. Node instances carry their own progress
// (indices, counters, timers) and must not be shared between trees; build a
// fresh graph per tree, for example through the template package.
//
// Node evaluation returns (Status, error). Mis-configuration (a nil child, a
// non-positive repeat count or duration) degrades to Failure with a nil
// error. Errors raised by user code reached from a node propagate to the
// caller of Tick unchanged.
package behavior

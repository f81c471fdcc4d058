// Package sync is the bidirectional synchronization engine: it reconciles
// a circuit model freshly built from source against a KiCad document that
// a human has been editing by hand, and rewrites only what actually
// changed.
//
// The pipeline is load → match → classify → apply → render nets → save.
// Matching runs an ordered chain of strategies (identity token, reference
// label, position fingerprint) so a part that was renamed, moved, and
// re-valued in the same run is still recognized as the same part. The
// applier mutates matched elements in place, preserving their position,
// rotation, and identity token, places new parts through a deterministic
// allocator, and never rewrites elements it does not own. Every outcome,
// including the conditions the engine refuses to resolve on its own,
// lands in the Report handed back to the caller.
//
// Running the pipeline twice over an unchanged circuit is a no-op: the
// second run classifies every element as preserved and the serialized
// document is byte-identical.
package sync

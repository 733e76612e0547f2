// Package pipeline runs documents through a sequence of steps.
//
// A Pipeline processes one document: ReadStep loads and digests it,
// ExtractStep finds its links, and ValidateStep turns every link into a
// Finding. BatchProcessor runs one pipeline per document on a bounded
// errgroup, and Engine wraps a batch with the reachability cache
// lifecycle (load once, save once) and aggregates the findings into a
// model.Result.
package pipeline

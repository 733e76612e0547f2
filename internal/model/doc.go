// Package model defines the data structures shared by the link checker.
//
// This package contains the following main types:
//   - LinkOccurrence: a link as found in a document, with its line number
//   - Finding: the verdict for one occurrence, the unit of report output
//   - Outcome: the result of probing one external URL
//   - Document: the per-document work item passed through the pipeline
//   - Result: all findings of a run plus summary counts
//
// Status and LinkType are closed enums that marshal to their lowercase names,
// so findings serialize to the same JSON shape consumed by CI tooling.
package model

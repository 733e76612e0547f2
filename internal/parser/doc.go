// Package parser extracts link occurrences and heading anchors from
// Markdown text.
//
// Extraction is pattern based and sits behind the Extractor interface, so a
// grammar-based parser can replace RegexExtractor without touching
// classification or checking. Anchors and Slugify share one slug algorithm
// for the current document and for link targets.
package parser

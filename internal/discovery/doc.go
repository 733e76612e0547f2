// Package discovery finds the Markdown documents to validate under a corpus
// root, using glob patterns with "**" support and ignore patterns.
package discovery

// Package report renders the findings of a run.
//
// Writers exist for the plain text format, a JSON array of findings, a
// Markdown summary built with github.com/nao1215/markdown, and GitHub
// Actions workflow commands. Every writer orders findings by path and
// line before rendering; the engine itself makes no ordering promise.
package report

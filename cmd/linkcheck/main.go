// Package main provides the entry point for the linkcheck CLI.
//
// linkcheck validates every hyperlink of a Markdown corpus: external links
// must resolve to a live, public resource and relative links must point at
// an existing file and heading.
//
// Usage:
//
//	linkcheck check [paths...]
//	linkcheck history --compare
//
// See --help for all available options.
package main

func main() {
	Execute()
}

// Package resolver validates internal (relative) links against the file
// system: the target file must exist and, when the link carries a
// fragment, the target must contain a heading with that slug.
package resolver

// Package dispatch turns a parsed request into a response by serving files
// from a document root. It accepts GET and HEAD only and rejects any target
// that does not start with "/" or that contains "..".
package dispatch

// Package post runs one publish attempt end to end: validate the proxy,
// build the egress transport, upload media when present, create the post,
// and return an Outcome that always carries the redacted request audit.
package post

// Package probe checks, with a hard time bound, that a proxy can actually
// open a TCP tunnel to the upstream API host, and classifies why it could
// not. A probe never sends application data and never looks at HTTP status
// from the upstream itself.
package probe

package proxyspec

// Package proxyspec turns the loosely-structured proxy object supplied by
// callers ({"http": ..., "https": ..., "socks5": ...}) into a validated Spec.
//
// Parsing is purely syntactic. Whether the proxy is actually reachable is
// decided later by the probe package.

package socks5

// Package socks5 is a thin layer over github.com/txthinking/socks5 holding the
// client and server halves of SOCKS5 negotiation used by relaypost.
//
// The client half reports failures as typed errors (ErrAuthRejected,
// ErrAuthRequired, ErrNoAcceptableMethods, *ReplyError) so callers can
// classify a proxy failure without matching on message text. The server half
// exists for loopback test proxies.

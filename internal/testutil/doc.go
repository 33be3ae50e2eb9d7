// Package testutil holds loopback servers and fake proxies shared by tests.
package testutil

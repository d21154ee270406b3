// Package klog is the kernel's console logger. The teacher's packages have
// no network/HTTP logging stack to borrow from, so a thin wrapper over the
// standard library's log.Logger is the idiomatic ambient choice here.
package klog

import (
	"fmt"
	"log"
	"os"
)

var std = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)

/// SetOutput redirects kernel log output, primarily for tests.
func SetOutput(l *log.Logger) {
	std = l
}

/// Infof logs an informational kernel message.
func Infof(format string, args ...interface{}) {
	std.Printf("[k] "+format, args...)
}

/// Warnf logs a kernel warning.
func Warnf(format string, args ...interface{}) {
	std.Printf("[warn] "+format, args...)
}

/// Fatalf logs a kernel invariant violation and panics, per spec.md §7:
/// kernel invariant violations (corrupt PCB, unreachable switch arms) are
/// fatal, not recoverable errors.
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	std.Printf("[panic] %s", msg)
	panic(msg)
}

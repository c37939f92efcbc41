// Package sink resolves logical destinations into open, writable handles.
//
// A destination is described by a target (a path, the literal STDOUT or
// STDERR, or an already open Sink), a sink type and an options string.
// Resolver maps those onto constructors registered per type:
//
//	file     plain file, append by default (built in)
//	zstd     file holding a stream of zstd frames
//	journal  systemd journal, target is the SYSLOG_IDENTIFIER
//
// STDOUT and STDERR are shared Console singletons. They are handed out to
// every route that asks for them and are never closed.
//
// Resolving an already open Sink reopens it in place. This is how the
// daemon cooperates with logrotate-style tools: the old file is renamed
// away, the daemon reopens, and a fresh file appears at the original path
// while routes keep holding the same handle.
//
// Options is a comma separated list:
//
//	append | a | ab        open with O_APPEND (default)
//	truncate | w | wb      truncate on first open
//	sync                   open with O_SYNC
//	0600                   file permissions (octal, default 0640)
//	level=<name>           zstd encoder level (fastest, default, better, best)
//
// Third parties add sink types with Register before the first Resolve.
package sink

// Package main hosts the outloud CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the daemon's API, library maintenance operations, progress
// streaming, and configuration scaffolding. The serve command assembles the
// daemon itself: store, pipeline runner, janitor, and API server.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main

// Package internal contains the core implementation packages for gorsx.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules while providing
// all the core functionality for the gorsx CLI tool.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - markup: Tokenizer, recursive-descent parser and structural validator
//   - engine: Compiles templates with expr-lang expressions
//   - codegen: Generates Go components and Markdown docs from templates
//   - registry: Component registry and dependency ordering
//   - renderer: Renders registered components from untyped props
//   - scanner: Finds and hashes template files
//   - watcher: File system monitoring with debouncing
//   - server: Preview server with websocket live reload
//   - config, logging, errors, version: the ambient stack
//
// The runtime that templates and generated code build on lives in pkg:
// node, attr, component and render.
//
// # Data Flow
//
// Source text flows in one direction:
//
//	scanner -> markup -> engine -> registry -> renderer -> render
//
// markup produces a validated tree of specs; engine turns specs into
// programs that build node trees; render serializes a node tree. Nothing
// downstream of markup sees source text again.
package internal

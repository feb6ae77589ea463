// Package nskeyed converts NSKeyedArchiver-encoded property lists into
// plain, human-readable trees suitable for re-serialization as a regular
// property list (text or binary) or JSON.
//
// A keyed archiver flattens an object graph into a table of indexed records
// inside a property-list container. This library reverses that: it resolves
// the table's integer references back into a tree, expands the archiver's
// class-tagged collection encodings (NSDictionary, NSArray, NSSet and their
// mutable variants) into native structures, and hands the result to an
// output encoder.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	nskeyed/             Root package with one-shot conversion helpers
//	├── archive/         Envelope validation and the flat object table
//	├── decoder/         Reference resolution and class reinterpretation
//	├── value/           Normalized tree model shared by decoder and encoders
//	├── encode/          XML, binary and OpenStep plist plus JSON output
//	├── errors/          Structured error types for diagnostics
//	└── cmd/nskeyed/     Command-line converter and interactive tree browser
//
// # Quick Start
//
// Convert an archive file to a text property list:
//
//	err := nskeyed.ConvertFile("in.plist", "out.plist", nskeyed.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Or decode to the value model for programmatic use:
//
//	tree, err := nskeyed.Decode(data, nskeyed.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tree.Range(func(name string, v value.Value) bool {
//	    fmt.Println(name, v.Kind())
//	    return true
//	})
//
// # Conversion Modes
//
// Two decoder modes adjust the output shape. Retain-nulls keeps null values
// inside containers instead of omitting them. Raw-classes skips collection
// reinterpretation and keeps each object's ancestor class names under a
// $classes key.
//
// Output is tree-shaped: subtrees the archive shares by reference are
// duplicated by value, and archives with reference cycles are rejected.
package nskeyed

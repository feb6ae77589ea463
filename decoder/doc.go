// Package decoder reconstructs the logical object graph a keyed archiver
// flattened into an object table, producing a normalized value tree.
//
// The archiver stores every object once and wires the graph together with
// integer references. Decoding walks the table from the declared root
// entries, follows each reference at most once per pass (shared subtrees are
// duplicated by value in the output), and rejects true cycles since the tree
// model cannot express them.
//
// Records tagged with a class reference are reinterpreted structurally:
// NSDictionary and NSMutableDictionary become ordered mappings, NSArray,
// NSMutableArray, NSSet and NSMutableSet become sequences, and any other
// class decodes to its raw field dictionary. Raw-classes mode disables the
// reinterpretation and keeps the ancestor class names under $classes.
//
// Null references inside containers are omitted by default; retain-nulls
// mode keeps them in place.
//
//	ar, err := archive.FromFile("snapshot.plist")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tree, err := decoder.Decode(ar, decoder.Options{})
//
// All transient state lives in the decode call, so independent decodes may
// run concurrently.
package decoder

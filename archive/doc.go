// Package archive loads keyed-archiver envelopes and owns the flat object
// table the decoder resolves references against.
//
// An archive is a property-list container (binary or XML, autodetected by the
// codec) whose root mapping carries four header keys: $archiver and $version
// identify the producing scheme, $top names the root entry points, and
// $objects holds the object table. Construction validates all four;
// everything else is left untouched for the decoder.
//
//	ar, err := archive.FromFile("snapshot.plist")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	raw, err := ar.Object(ref)
//
// Object lookup is bounds-checked; reference 0 is the reserved null
// reference and is always valid.
package archive

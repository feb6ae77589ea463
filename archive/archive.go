package archive

import (
	"bytes"
	"io"
	"os"
	"sort"

	"howett.net/plist"

	"github.com/wippyai/nskeyed/errors"
)

// Header keys of a keyed-archiver envelope.
const (
	keyArchiver = "$archiver"
	keyVersion  = "$version"
	keyTop      = "$top"
	keyObjects  = "$objects"
)

const (
	archiverName    = "NSKeyedArchiver"
	archiverVersion = 100000
)

// NullRef is the reserved object-table index meaning "no object".
const NullRef = plist.UID(0)

// Archive holds a validated envelope: the named root entry points and the
// flat object table the archiver serialized the graph into. The table is
// read-only after construction.
type Archive struct {
	top     map[string]plist.UID
	objects []any
}

// FromFile reads and validates an archive from a property-list file,
// binary or XML.
func FromFile(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.IO(err, "open %s", path)
	}
	defer f.Close()
	return FromReader(f)
}

// FromBytes parses and validates an archive from an in-memory property list.
func FromBytes(data []byte) (*Archive, error) {
	return FromReader(bytes.NewReader(data))
}

// FromReader parses and validates an archive from a seekable stream. The
// container codec needs to seek to autodetect binary versus XML input.
func FromReader(r io.ReadSeeker) (*Archive, error) {
	var root any
	if err := plist.NewDecoder(r).Decode(&root); err != nil {
		return nil, errors.Codec(errors.PhaseParse, err, "parse property list container")
	}
	return FromValue(root)
}

// FromValue validates an already-parsed container value as an archive
// envelope. The root must be a mapping with $archiver, $version, $top and
// $objects entries of the expected shapes.
func FromValue(root any) (*Archive, error) {
	dict, ok := root.(map[string]any)
	if !ok {
		return nil, errors.WrongType("root", "dictionary", root)
	}

	archiver, err := headerKey(dict, keyArchiver)
	if err != nil {
		return nil, err
	}
	name, ok := archiver.(string)
	if !ok {
		return nil, errors.WrongType(keyArchiver, "string", archiver)
	}
	if name != archiverName {
		return nil, errors.New(errors.PhaseParse, errors.KindUnsupportedArchiver).
			Detail("unsupported archiver %q, only %q is supported", name, archiverName).
			Build()
	}

	version, err := headerKey(dict, keyVersion)
	if err != nil {
		return nil, err
	}
	num, ok := intValue(version)
	if !ok {
		return nil, errors.WrongType(keyVersion, "integer", version)
	}
	if num != archiverVersion {
		return nil, errors.New(errors.PhaseParse, errors.KindUnsupportedVersion).
			Detail("unsupported archiver version %d, only %d is supported", num, archiverVersion).
			Build()
	}

	rawTop, err := headerKey(dict, keyTop)
	if err != nil {
		return nil, err
	}
	topDict, ok := rawTop.(map[string]any)
	if !ok {
		return nil, errors.WrongType(keyTop, "dictionary", rawTop)
	}
	top := make(map[string]plist.UID, len(topDict))
	for name, entry := range topDict {
		ref, ok := entry.(plist.UID)
		if !ok {
			return nil, errors.New(errors.PhaseParse, errors.KindMalformedEnvelope).
				Path(keyTop, name).
				Detail("root entry is %T, want a UID reference", entry).
				Build()
		}
		top[name] = ref
	}

	rawObjects, err := headerKey(dict, keyObjects)
	if err != nil {
		return nil, err
	}
	objects, ok := rawObjects.([]any)
	if !ok {
		return nil, errors.WrongType(keyObjects, "array", rawObjects)
	}

	return &Archive{top: top, objects: objects}, nil
}

func headerKey(dict map[string]any, key string) (any, error) {
	v, ok := dict[key]
	if !ok {
		return nil, errors.MissingKey(key)
	}
	return v, nil
}

func intValue(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	}
	return 0, false
}

// Object returns the raw record for ref, bounds-checked against the table.
// The reserved null reference is valid and returns the table's first record.
func (a *Archive) Object(ref plist.UID) (any, error) {
	if uint64(ref) >= uint64(len(a.objects)) {
		return nil, errors.DanglingReference(nil, uint64(ref), len(a.objects))
	}
	return a.objects[ref], nil
}

// Len returns the number of records in the object table
func (a *Archive) Len() int {
	return len(a.objects)
}

// TopKeys returns the names of the root entry points in sorted order. The
// container codec decodes mappings into Go maps, so the archive's own entry
// order is unavailable; sorting keeps decode output deterministic.
func (a *Archive) TopKeys() []string {
	keys := make([]string, 0, len(a.top))
	for k := range a.top {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TopRef returns the reference for a named root entry
func (a *Archive) TopRef(name string) (plist.UID, bool) {
	ref, ok := a.top[name]
	return ref, ok
}

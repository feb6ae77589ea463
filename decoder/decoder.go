package decoder

import (
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
	"howett.net/plist"

	"github.com/wippyai/nskeyed/archive"
	"github.com/wippyai/nskeyed/errors"
	"github.com/wippyai/nskeyed/value"
)

// Record keys written by the keyed archiver.
const (
	keyClass     = "$class"
	keyClasses   = "$classes"
	keyNSKeys    = "NS.keys"
	keyNSObjects = "NS.objects"

	nullMarker = "$null"
)

// Collection class names recognized for structural reinterpretation. The set
// is closed; extend it here rather than special-casing call sites.
var (
	dictionaryClasses = map[string]bool{
		"NSDictionary":        true,
		"NSMutableDictionary": true,
	}
	sequenceClasses = map[string]bool{
		"NSArray":        true,
		"NSMutableArray": true,
		"NSSet":          true,
		"NSMutableSet":   true,
	}
)

// DefaultMaxDepth bounds resolution recursion so an adversarial archive
// cannot exhaust the call stack.
const DefaultMaxDepth = 4096

// Options configure one decode pass.
type Options struct {
	// RawClasses disables collection reinterpretation. Every class-tagged
	// record decodes to its raw field dictionary with a $classes entry
	// holding the resolved ancestor names.
	RawClasses bool

	// RetainNulls keeps null values inside containers instead of
	// omitting them.
	RetainNulls bool

	// MaxDepth overrides DefaultMaxDepth when positive.
	MaxDepth int
}

// decoder holds the transient state of one decode pass: the memo cache and
// the set of references on the active resolution path. Both are private to
// the pass, so independent decodes may run concurrently.
type decoder struct {
	ar     *archive.Archive
	opts   Options
	depth  int
	cache  map[plist.UID]value.Value
	active map[plist.UID]bool
}

// Decode resolves every root entry of the archive into a normalized value
// tree, one dictionary entry per $top name. Shared subtrees in the source
// graph are duplicated by value in the output; true cycles are an error
// because the tree model cannot express them.
func Decode(ar *archive.Archive, opts Options) (*value.Dict, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	d := &decoder{
		ar:     ar,
		opts:   opts,
		cache:  make(map[plist.UID]value.Value),
		active: make(map[plist.UID]bool),
	}

	names := ar.TopKeys()
	Logger().Debug("decoding archive",
		zap.Int("objects", ar.Len()),
		zap.Strings("top", names),
		zap.Bool("raw_classes", opts.RawClasses),
		zap.Bool("retain_nulls", opts.RetainNulls))

	out := value.NewDict()
	for _, name := range names {
		ref, _ := ar.TopRef(name)
		v, err := d.resolve(ref, []string{name})
		if err != nil {
			return nil, err
		}
		if v.Kind() == value.KindNull && !opts.RetainNulls {
			continue
		}
		out.Set(name, v)
	}
	return out, nil
}

// resolve turns one reference into a normalized value. It detects cycles via
// the active set and memoizes completed results, so each record is resolved
// at most once per pass.
func (d *decoder) resolve(ref plist.UID, path []string) (value.Value, error) {
	if ref == archive.NullRef {
		return value.Null{}, nil
	}
	if d.active[ref] {
		return nil, errors.CyclicReference(path, uint64(ref))
	}
	if v, ok := d.cache[ref]; ok {
		return v, nil
	}

	raw, err := d.ar.Object(ref)
	if err != nil {
		return nil, withPath(err, path)
	}

	d.active[ref] = true
	v, err := d.resolveRecord(raw, ref, path)
	delete(d.active, ref)
	if err != nil {
		return nil, err
	}

	d.cache[ref] = v
	return v, nil
}

// resolveRecord classifies one raw record. Class-tagged mappings go through
// collection reinterpretation; everything else is a primitive or a plain
// container that may still hold references.
func (d *decoder) resolveRecord(raw any, ref plist.UID, path []string) (value.Value, error) {
	switch rec := raw.(type) {
	case string:
		if rec == nullMarker {
			return value.Null{}, nil
		}
		return value.String(rec), nil
	case map[string]any:
		if err := d.descend(ref, path); err != nil {
			return nil, err
		}
		defer d.ascend()
		if _, tagged := rec[keyClass]; tagged {
			return d.resolveObject(rec, ref, path)
		}
		return d.resolvePlainDict(rec, ref, path)
	case []any:
		if err := d.descend(ref, path); err != nil {
			return nil, err
		}
		defer d.ascend()
		return d.resolveElements(rec, ref, path)
	case plist.UID:
		// A record that is itself a reference; follow it.
		if err := d.descend(ref, path); err != nil {
			return nil, err
		}
		defer d.ascend()
		return d.resolve(rec, path)
	case nil:
		return value.Null{}, nil
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, time.Time, []byte:
		v, err := value.FromNative(rec)
		if err != nil {
			return nil, errors.InvalidEncoding(path, uint64(ref), "%v", err)
		}
		return v, nil
	}
	return nil, errors.InvalidEncoding(path, uint64(ref), "record has unsupported type %T", raw)
}

// resolveAny resolves an inline value found inside a record: references are
// followed, containers recursed into, primitives wrapped.
func (d *decoder) resolveAny(raw any, ref plist.UID, path []string) (value.Value, error) {
	if uid, ok := raw.(plist.UID); ok {
		return d.resolve(uid, path)
	}
	return d.resolveRecord(raw, ref, path)
}

// resolveObject handles a class-tagged record: look up the class descriptor,
// reinterpret recognized collection classes, and fall back to the raw field
// dictionary for everything else.
func (d *decoder) resolveObject(rec map[string]any, ref plist.UID, path []string) (value.Value, error) {
	classRef, ok := rec[keyClass].(plist.UID)
	if !ok {
		return nil, errors.InvalidEncoding(path, uint64(ref), "%s is %T, want a UID reference", keyClass, rec[keyClass])
	}
	names, err := d.classNames(classRef, path)
	if err != nil {
		return nil, err
	}
	classname := names[0]

	if !d.opts.RawClasses {
		switch {
		case dictionaryClasses[classname]:
			return d.resolveDictionary(rec, ref, path)
		case sequenceClasses[classname]:
			return d.resolveSequence(rec, ref, path)
		}
	}
	return d.resolveCustom(rec, names, ref, path)
}

// classNames resolves a class descriptor into its ancestor chain, most
// derived first.
func (d *decoder) classNames(classRef plist.UID, path []string) ([]string, error) {
	raw, err := d.ar.Object(classRef)
	if err != nil {
		return nil, withPath(err, path)
	}
	desc, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.InvalidEncoding(path, uint64(classRef), "class descriptor is %T, want a dictionary", raw)
	}
	chain, ok := desc[keyClasses].([]any)
	if !ok || len(chain) == 0 {
		return nil, errors.InvalidEncoding(path, uint64(classRef), "class descriptor has no %s list", keyClasses)
	}
	names := make([]string, 0, len(chain))
	for _, entry := range chain {
		name, ok := entry.(string)
		if !ok {
			return nil, errors.InvalidEncoding(path, uint64(classRef), "class name is %T, want string", entry)
		}
		names = append(names, name)
	}
	return names, nil
}

// resolveDictionary reinterprets an NSDictionary-family record: NS.keys and
// NS.objects are parallel reference sequences; keys must resolve to strings.
// Duplicate keys are last-write-wins.
func (d *decoder) resolveDictionary(rec map[string]any, ref plist.UID, path []string) (value.Value, error) {
	rawKeys, ok := rec[keyNSKeys].([]any)
	if !ok {
		return nil, errors.MalformedCollection(path, uint64(ref), "dictionary record has no %s sequence", keyNSKeys)
	}
	rawObjects, ok := rec[keyNSObjects].([]any)
	if !ok {
		return nil, errors.MalformedCollection(path, uint64(ref), "dictionary record has no %s sequence", keyNSObjects)
	}
	if len(rawKeys) != len(rawObjects) {
		return nil, errors.MalformedCollection(path, uint64(ref),
			"%s has %d entries but %s has %d", keyNSKeys, len(rawKeys), keyNSObjects, len(rawObjects))
	}

	out := value.NewDict()
	for i := range rawKeys {
		kv, err := d.resolveAny(rawKeys[i], ref, childPath(path, indexKey(keyNSKeys, i)))
		if err != nil {
			return nil, err
		}
		key, ok := kv.(value.String)
		if !ok {
			return nil, errors.UnsupportedKeyType(childPath(path, indexKey(keyNSKeys, i)), uint64(ref), kv.Kind().String())
		}
		vv, err := d.resolveAny(rawObjects[i], ref, childPath(path, string(key)))
		if err != nil {
			return nil, err
		}
		if vv.Kind() == value.KindNull && !d.opts.RetainNulls {
			continue
		}
		out.Set(string(key), vv)
	}
	return out, nil
}

// resolveSequence reinterprets an NSArray- or NSSet-family record. Sets keep
// the archive's stored order; the output model does not distinguish them
// from arrays.
func (d *decoder) resolveSequence(rec map[string]any, ref plist.UID, path []string) (value.Value, error) {
	rawObjects, ok := rec[keyNSObjects].([]any)
	if !ok {
		return nil, errors.MalformedCollection(path, uint64(ref), "sequence record has no %s sequence", keyNSObjects)
	}
	return d.resolveElements(rawObjects, ref, path)
}

func (d *decoder) resolveElements(raw []any, ref plist.UID, path []string) (value.Value, error) {
	out := make(value.Array, 0, len(raw))
	for i, elem := range raw {
		v, err := d.resolveAny(elem, ref, childPath(path, indexKey("", i)))
		if err != nil {
			return nil, err
		}
		if v.Kind() == value.KindNull && !d.opts.RetainNulls {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// resolveCustom builds the raw field dictionary of an unrecognized (or
// raw-classes mode) object. The $class reference is dropped; in raw-classes
// mode the resolved ancestor names are kept under $classes instead. Field
// order follows sorted key order because the container codec does not
// preserve record key order.
func (d *decoder) resolveCustom(rec map[string]any, names []string, ref plist.UID, path []string) (value.Value, error) {
	out := value.NewDict()
	if d.opts.RawClasses {
		chain := make(value.Array, 0, len(names))
		for _, name := range names {
			chain = append(chain, value.String(name))
		}
		out.Set(keyClasses, chain)
	}

	fields := make([]string, 0, len(rec))
	for k := range rec {
		if k != keyClass {
			fields = append(fields, k)
		}
	}
	sort.Strings(fields)

	for _, k := range fields {
		v, err := d.resolveAny(rec[k], ref, childPath(path, k))
		if err != nil {
			return nil, err
		}
		if v.Kind() == value.KindNull && !d.opts.RetainNulls {
			continue
		}
		out.Set(k, v)
	}
	return out, nil
}

// resolvePlainDict handles an untagged mapping record. Rare in real
// archives, but its values may still be references.
func (d *decoder) resolvePlainDict(rec map[string]any, ref plist.UID, path []string) (value.Value, error) {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := value.NewDict()
	for _, k := range keys {
		v, err := d.resolveAny(rec[k], ref, childPath(path, k))
		if err != nil {
			return nil, err
		}
		if v.Kind() == value.KindNull && !d.opts.RetainNulls {
			continue
		}
		out.Set(k, v)
	}
	return out, nil
}

// descend charges one recursion level against the depth budget. Every
// recursion point goes through it, so the bound covers inline container
// nesting and reference chains alike, not just reference hops.
func (d *decoder) descend(ref plist.UID, path []string) error {
	if d.depth >= d.opts.MaxDepth {
		return errors.DepthExceeded(path, uint64(ref), d.opts.MaxDepth)
	}
	d.depth++
	return nil
}

func (d *decoder) ascend() {
	d.depth--
}

// withPath attaches the current key path to a structured error that was
// raised below the point where the path was known.
func withPath(err error, path []string) error {
	if e, ok := err.(*errors.Error); ok && len(e.Path) == 0 {
		e.Path = path
	}
	return err
}

// childPath extends an error path without sharing the parent's backing
// array; sibling resolutions must not clobber a path captured by an error.
func childPath(path []string, elem string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, elem)
}

func indexKey(base string, i int) string {
	return base + "[" + strconv.Itoa(i) + "]"
}

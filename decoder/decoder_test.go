package decoder_test

import (
	"errors"
	"testing"
	"time"

	"howett.net/plist"

	"github.com/wippyai/nskeyed/archive"
	"github.com/wippyai/nskeyed/decoder"
	converr "github.com/wippyai/nskeyed/errors"
	"github.com/wippyai/nskeyed/value"
)

// newArchive builds an in-memory archive with $top = {"root": 1} unless top
// is given. objects[0] should be the "$null" sentinel as the archiver writes.
func newArchive(t *testing.T, objects []any, top map[string]any) *archive.Archive {
	t.Helper()
	if top == nil {
		top = map[string]any{"root": plist.UID(1)}
	}
	ar, err := archive.FromValue(map[string]any{
		"$archiver": "NSKeyedArchiver",
		"$version":  100000,
		"$top":      top,
		"$objects":  objects,
	})
	if err != nil {
		t.Fatalf("FromValue: %v", err)
	}
	return ar
}

func classDesc(names ...string) map[string]any {
	chain := make([]any, len(names))
	for i, n := range names {
		chain[i] = n
	}
	return map[string]any{"$classname": names[0], "$classes": chain}
}

func mustDecode(t *testing.T, ar *archive.Archive, opts decoder.Options) *value.Dict {
	t.Helper()
	out, err := decoder.Decode(ar, opts)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return out
}

func rootValue(t *testing.T, d *value.Dict) value.Value {
	t.Helper()
	v, ok := d.Get("root")
	if !ok {
		t.Fatalf("no root entry; keys = %v", d.Keys())
	}
	return v
}

func expectKind(t *testing.T, err error, kind converr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, &converr.Error{Phase: converr.PhaseDecode, Kind: kind}) {
		t.Fatalf("error = %v, want kind %s", err, kind)
	}
}

func TestDecodePrimitives(t *testing.T) {
	when := time.Date(2021, 6, 15, 8, 30, 0, 0, time.UTC)
	tests := []struct {
		name   string
		record any
		want   value.Value
	}{
		{"string", "hello", value.String("hello")},
		{"integer", uint64(42), value.Uint(42)},
		{"negative integer", int64(-3), value.Int(-3)},
		{"real", 2.5, value.Real(2.5)},
		{"boolean", true, value.Boolean(true)},
		{"date", when, value.Date(when)},
		{"bytes", []byte{0xca, 0xfe}, value.Bytes{0xca, 0xfe}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ar := newArchive(t, []any{"$null", tt.record}, nil)
			out := mustDecode(t, ar, decoder.Options{})
			if out.Len() != 1 {
				t.Fatalf("len = %d, want 1", out.Len())
			}
			if got := rootValue(t, out); !value.Equal(got, tt.want) {
				t.Errorf("root = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeNullRootEntry(t *testing.T) {
	top := map[string]any{"root": plist.UID(0)}
	ar := newArchive(t, []any{"$null"}, top)

	out := mustDecode(t, ar, decoder.Options{})
	if out.Len() != 0 {
		t.Errorf("null root should be omitted by default; keys = %v", out.Keys())
	}

	out = mustDecode(t, ar, decoder.Options{RetainNulls: true})
	if got := rootValue(t, out); got.Kind() != value.KindNull {
		t.Errorf("root = %v, want null", got.Kind())
	}
}

func TestDecodeNullMarkerRecord(t *testing.T) {
	// A non-zero reference to a "$null" sentinel record behaves like the
	// reserved null reference.
	ar := newArchive(t, []any{"$null", "$null"}, nil)

	out := mustDecode(t, ar, decoder.Options{})
	if out.Len() != 0 {
		t.Errorf("null marker should be omitted by default; keys = %v", out.Keys())
	}

	out = mustDecode(t, ar, decoder.Options{RetainNulls: true})
	if got := rootValue(t, out); got.Kind() != value.KindNull {
		t.Errorf("root = %v, want null", got.Kind())
	}
}

func TestDecodeDictionary(t *testing.T) {
	objects := []any{
		"$null",
		map[string]any{
			"$class":     plist.UID(2),
			"NS.keys":    []any{plist.UID(3), plist.UID(4)},
			"NS.objects": []any{plist.UID(5), plist.UID(6)},
		},
		classDesc("NSMutableDictionary", "NSDictionary", "NSObject"),
		"first",
		"second",
		uint64(1),
		"two",
	}
	ar := newArchive(t, objects, nil)
	out := mustDecode(t, ar, decoder.Options{})

	d, ok := rootValue(t, out).(*value.Dict)
	if !ok {
		t.Fatalf("root is %T, want *value.Dict", rootValue(t, out))
	}
	keys := d.Keys()
	if len(keys) != 2 || keys[0] != "first" || keys[1] != "second" {
		t.Fatalf("keys = %v, want [first second]", keys)
	}
	v1, _ := d.Get("first")
	if !value.Equal(v1, value.Uint(1)) {
		t.Errorf("first = %#v", v1)
	}
	v2, _ := d.Get("second")
	if !value.Equal(v2, value.String("two")) {
		t.Errorf("second = %#v", v2)
	}
}

func TestDecodeDictionaryDuplicateKeysLastWins(t *testing.T) {
	objects := []any{
		"$null",
		map[string]any{
			"$class":     plist.UID(2),
			"NS.keys":    []any{plist.UID(3), plist.UID(3)},
			"NS.objects": []any{plist.UID(4), plist.UID(5)},
		},
		classDesc("NSDictionary", "NSObject"),
		"k",
		uint64(1),
		uint64(2),
	}
	ar := newArchive(t, objects, nil)
	out := mustDecode(t, ar, decoder.Options{})

	d := rootValue(t, out).(*value.Dict)
	if d.Len() != 1 {
		t.Fatalf("len = %d, want 1", d.Len())
	}
	v, _ := d.Get("k")
	if !value.Equal(v, value.Uint(2)) {
		t.Errorf("k = %#v, want 2", v)
	}
}

func TestDecodeSequences(t *testing.T) {
	for _, class := range []string{"NSArray", "NSMutableArray", "NSSet", "NSMutableSet"} {
		t.Run(class, func(t *testing.T) {
			objects := []any{
				"$null",
				map[string]any{
					"$class":     plist.UID(2),
					"NS.objects": []any{plist.UID(3), plist.UID(4), plist.UID(5)},
				},
				classDesc(class, "NSObject"),
				"a",
				uint64(7),
				"c",
			}
			ar := newArchive(t, objects, nil)
			out := mustDecode(t, ar, decoder.Options{})

			want := value.Array{value.String("a"), value.Uint(7), value.String("c")}
			if got := rootValue(t, out); !value.Equal(got, want) {
				t.Errorf("root = %#v, want %#v", got, want)
			}
		})
	}
}

func TestDecodeNullElementsOmitted(t *testing.T) {
	objects := []any{
		"$null",
		map[string]any{
			"$class":     plist.UID(2),
			"NS.objects": []any{plist.UID(3), plist.UID(0), plist.UID(4)},
		},
		classDesc("NSArray", "NSObject"),
		"a",
		"b",
	}
	ar := newArchive(t, objects, nil)

	out := mustDecode(t, ar, decoder.Options{})
	want := value.Array{value.String("a"), value.String("b")}
	if got := rootValue(t, out); !value.Equal(got, want) {
		t.Errorf("root = %#v, want %#v", got, want)
	}

	out = mustDecode(t, ar, decoder.Options{RetainNulls: true})
	want = value.Array{value.String("a"), value.Null{}, value.String("b")}
	if got := rootValue(t, out); !value.Equal(got, want) {
		t.Errorf("retain nulls: root = %#v, want %#v", got, want)
	}
}

func TestDecodeNullDictValue(t *testing.T) {
	objects := []any{
		"$null",
		map[string]any{
			"$class":     plist.UID(2),
			"NS.keys":    []any{plist.UID(3)},
			"NS.objects": []any{plist.UID(0)},
		},
		classDesc("NSDictionary", "NSObject"),
		"gone",
	}
	ar := newArchive(t, objects, nil)

	out := mustDecode(t, ar, decoder.Options{})
	if d := rootValue(t, out).(*value.Dict); d.Len() != 0 {
		t.Errorf("null value should drop the key; keys = %v", d.Keys())
	}

	out = mustDecode(t, ar, decoder.Options{RetainNulls: true})
	d := rootValue(t, out).(*value.Dict)
	v, ok := d.Get("gone")
	if !ok || v.Kind() != value.KindNull {
		t.Errorf("retain nulls should keep the key with a null value; got %v, %v", v, ok)
	}
}

func TestDecodeCustomClass(t *testing.T) {
	objects := []any{
		"$null",
		map[string]any{
			"$class": plist.UID(2),
			"x":      uint64(1),
			"y":      plist.UID(3),
		},
		classDesc("Employee", "Person", "NSObject"),
		"s",
	}
	ar := newArchive(t, objects, nil)

	out := mustDecode(t, ar, decoder.Options{})
	d := rootValue(t, out).(*value.Dict)
	if d.Len() != 2 {
		t.Fatalf("len = %d, want 2; keys = %v", d.Len(), d.Keys())
	}
	if _, ok := d.Get("$class"); ok {
		t.Error("$class should be dropped")
	}
	x, _ := d.Get("x")
	if !value.Equal(x, value.Uint(1)) {
		t.Errorf("x = %#v", x)
	}
	y, _ := d.Get("y")
	if !value.Equal(y, value.String("s")) {
		t.Errorf("y = %#v", y)
	}
}

func TestDecodeCustomClassRawClasses(t *testing.T) {
	objects := []any{
		"$null",
		map[string]any{
			"$class": plist.UID(2),
			"x":      uint64(1),
		},
		classDesc("Employee", "Person", "NSObject"),
	}
	ar := newArchive(t, objects, nil)

	out := mustDecode(t, ar, decoder.Options{RawClasses: true})
	d := rootValue(t, out).(*value.Dict)
	chain, ok := d.Get("$classes")
	if !ok {
		t.Fatal("$classes missing in raw-classes mode")
	}
	want := value.Array{value.String("Employee"), value.String("Person"), value.String("NSObject")}
	if !value.Equal(chain, want) {
		t.Errorf("$classes = %#v, want %#v", chain, want)
	}
	if _, ok := d.Get("x"); !ok {
		t.Error("field x missing")
	}
}

func TestDecodeRawClassesKeepsCollectionsRaw(t *testing.T) {
	objects := []any{
		"$null",
		map[string]any{
			"$class":     plist.UID(2),
			"NS.objects": []any{plist.UID(3)},
		},
		classDesc("NSArray", "NSObject"),
		"elem",
	}
	ar := newArchive(t, objects, nil)

	out := mustDecode(t, ar, decoder.Options{RawClasses: true})
	d, ok := rootValue(t, out).(*value.Dict)
	if !ok {
		t.Fatalf("raw-classes root is %T, want *value.Dict", rootValue(t, out))
	}
	raw, ok := d.Get("NS.objects")
	if !ok {
		t.Fatal("NS.objects missing")
	}
	if !value.Equal(raw, value.Array{value.String("elem")}) {
		t.Errorf("NS.objects = %#v", raw)
	}
	if _, ok := d.Get("$classes"); !ok {
		t.Error("$classes missing")
	}
}

func TestDecodeSelfReferenceFails(t *testing.T) {
	objects := []any{
		"$null",
		map[string]any{
			"$class": plist.UID(2),
			"me":     plist.UID(1),
		},
		classDesc("Node", "NSObject"),
	}
	ar := newArchive(t, objects, nil)
	_, err := decoder.Decode(ar, decoder.Options{})
	expectKind(t, err, converr.KindCyclicReference)
}

func TestDecodeMultiHopCycleFails(t *testing.T) {
	objects := []any{
		"$null",
		map[string]any{"$class": plist.UID(3), "next": plist.UID(2)},
		map[string]any{"$class": plist.UID(3), "next": plist.UID(1)},
		classDesc("Node", "NSObject"),
	}
	ar := newArchive(t, objects, nil)
	_, err := decoder.Decode(ar, decoder.Options{})
	expectKind(t, err, converr.KindCyclicReference)
}

func TestDecodeSharedSubtreeDuplicates(t *testing.T) {
	objects := []any{
		"$null",
		map[string]any{
			"$class": plist.UID(3),
			"left":   plist.UID(2),
			"right":  plist.UID(2),
		},
		"shared",
		classDesc("Pair", "NSObject"),
	}
	ar := newArchive(t, objects, nil)
	out := mustDecode(t, ar, decoder.Options{})

	d := rootValue(t, out).(*value.Dict)
	left, _ := d.Get("left")
	right, _ := d.Get("right")
	if !value.Equal(left, value.String("shared")) || !value.Equal(right, value.String("shared")) {
		t.Errorf("left = %#v, right = %#v", left, right)
	}
}

func TestDecodeDanglingReference(t *testing.T) {
	objects := []any{
		"$null",
		map[string]any{"$class": plist.UID(2), "broken": plist.UID(99)},
		classDesc("Holder", "NSObject"),
	}
	ar := newArchive(t, objects, nil)
	_, err := decoder.Decode(ar, decoder.Options{})
	expectKind(t, err, converr.KindDanglingReference)
}

func TestDecodeDictionaryLengthMismatch(t *testing.T) {
	objects := []any{
		"$null",
		map[string]any{
			"$class":     plist.UID(2),
			"NS.keys":    []any{plist.UID(3), plist.UID(4)},
			"NS.objects": []any{plist.UID(5)},
		},
		classDesc("NSDictionary", "NSObject"),
		"k1", "k2", "v1",
	}
	ar := newArchive(t, objects, nil)
	_, err := decoder.Decode(ar, decoder.Options{})
	expectKind(t, err, converr.KindMalformedCollection)
}

func TestDecodeCollectionMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		record map[string]any
		class  string
	}{
		{
			name:   "dictionary without keys",
			record: map[string]any{"$class": plist.UID(2), "NS.objects": []any{}},
			class:  "NSDictionary",
		},
		{
			name:   "dictionary without objects",
			record: map[string]any{"$class": plist.UID(2), "NS.keys": []any{}},
			class:  "NSDictionary",
		},
		{
			name:   "array without objects",
			record: map[string]any{"$class": plist.UID(2)},
			class:  "NSArray",
		},
		{
			name:   "set without objects",
			record: map[string]any{"$class": plist.UID(2)},
			class:  "NSSet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects := []any{"$null", tt.record, classDesc(tt.class, "NSObject")}
			ar := newArchive(t, objects, nil)
			_, err := decoder.Decode(ar, decoder.Options{})
			expectKind(t, err, converr.KindMalformedCollection)
		})
	}
}

func TestDecodeNonStringDictionaryKey(t *testing.T) {
	objects := []any{
		"$null",
		map[string]any{
			"$class":     plist.UID(2),
			"NS.keys":    []any{plist.UID(3)},
			"NS.objects": []any{plist.UID(4)},
		},
		classDesc("NSDictionary", "NSObject"),
		uint64(12),
		"v",
	}
	ar := newArchive(t, objects, nil)
	_, err := decoder.Decode(ar, decoder.Options{})
	expectKind(t, err, converr.KindUnsupportedKeyType)
}

func TestDecodeBadClassDescriptor(t *testing.T) {
	tests := []struct {
		name string
		desc any
	}{
		{"not a dictionary", "NSDictionary"},
		{"missing classes", map[string]any{"$classname": "NSDictionary"}},
		{"non-string class name", map[string]any{"$classes": []any{uint64(1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects := []any{
				"$null",
				map[string]any{"$class": plist.UID(2)},
				tt.desc,
			}
			ar := newArchive(t, objects, nil)
			_, err := decoder.Decode(ar, decoder.Options{})
			expectKind(t, err, converr.KindInvalidEncoding)
		})
	}
}

func TestDecodeDepthLimit(t *testing.T) {
	// objects[i] references objects[i+1] through a nested plain array.
	const chain = 64
	objects := make([]any, chain+2)
	objects[0] = "$null"
	for i := 1; i <= chain; i++ {
		objects[i] = []any{plist.UID(uint64(i) + 1)}
	}
	objects[chain+1] = "bottom"

	ar := newArchive(t, objects, nil)
	if _, err := decoder.Decode(ar, decoder.Options{MaxDepth: chain + 1}); err != nil {
		t.Fatalf("decode within limit: %v", err)
	}
	_, err := decoder.Decode(ar, decoder.Options{MaxDepth: chain / 2})
	expectKind(t, err, converr.KindDepthExceeded)
}

func TestDecodeInlineNestingDepthLimit(t *testing.T) {
	// A single record holding deeply nested inline arrays; no reference
	// hops below the root, so the bound must count container nesting too.
	const levels = 64
	var rec any = "bottom"
	for i := 0; i < levels; i++ {
		rec = []any{rec}
	}
	ar := newArchive(t, []any{"$null", rec}, nil)

	if _, err := decoder.Decode(ar, decoder.Options{MaxDepth: levels + 1}); err != nil {
		t.Fatalf("decode within limit: %v", err)
	}
	_, err := decoder.Decode(ar, decoder.Options{MaxDepth: levels / 2})
	expectKind(t, err, converr.KindDepthExceeded)
}

func TestDecodeErrorPathIndexing(t *testing.T) {
	objects := []any{
		"$null",
		map[string]any{
			"$class":     plist.UID(2),
			"NS.keys":    []any{plist.UID(3), plist.UID(4)},
			"NS.objects": []any{plist.UID(5), plist.UID(6)},
		},
		classDesc("NSDictionary", "NSObject"),
		"ok",
		uint64(9),
		"v1",
		"v2",
	}
	ar := newArchive(t, objects, nil)
	_, err := decoder.Decode(ar, decoder.Options{})
	expectKind(t, err, converr.KindUnsupportedKeyType)

	var ce *converr.Error
	if !errors.As(err, &ce) {
		t.Fatalf("error is %T, want *errors.Error", err)
	}
	want := []string{"root", "NS.keys[1]"}
	if len(ce.Path) != 2 || ce.Path[0] != want[0] || ce.Path[1] != want[1] {
		t.Errorf("path = %v, want %v", ce.Path, want)
	}
}

func TestDecodeMultipleTopEntries(t *testing.T) {
	top := map[string]any{
		"beta":  plist.UID(1),
		"alpha": plist.UID(2),
	}
	ar := newArchive(t, []any{"$null", "one", uint64(2)}, top)
	out := mustDecode(t, ar, decoder.Options{})

	keys := out.Keys()
	if len(keys) != 2 || keys[0] != "alpha" || keys[1] != "beta" {
		t.Fatalf("top keys = %v, want [alpha beta]", keys)
	}
}

func TestDecodeNestedCollections(t *testing.T) {
	objects := []any{
		"$null",
		map[string]any{
			"$class":     plist.UID(2),
			"NS.keys":    []any{plist.UID(3)},
			"NS.objects": []any{plist.UID(4)},
		},
		classDesc("NSDictionary", "NSObject"),
		"items",
		map[string]any{
			"$class":     plist.UID(5),
			"NS.objects": []any{plist.UID(6), plist.UID(7)},
		},
		classDesc("NSMutableArray", "NSArray", "NSObject"),
		uint64(10),
		uint64(20),
	}
	ar := newArchive(t, objects, nil)
	out := mustDecode(t, ar, decoder.Options{})

	d := rootValue(t, out).(*value.Dict)
	items, ok := d.Get("items")
	if !ok {
		t.Fatal("items missing")
	}
	want := value.Array{value.Uint(10), value.Uint(20)}
	if !value.Equal(items, want) {
		t.Errorf("items = %#v, want %#v", items, want)
	}
}

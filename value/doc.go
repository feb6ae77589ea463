// Package value defines the normalized tree model shared by the archive
// decoder and every output encoder.
//
// A Value is one of a closed set of variants: Null, Boolean, Integer, Real,
// String, Date, Bytes, an ordered Array, or an ordered *Dict. The set mirrors
// the property-list type repertoire; anything an archive can hold after
// decoding is expressible here, and every encoder consumes exactly this type.
//
// Dict preserves insertion order, which matters because decoded dictionary
// entries carry the order stored in the archive. Structural comparison is
// provided by Equal and traversal by Walk:
//
//	root := value.NewDict()
//	root.Set("name", value.String("cart"))
//	root.Set("count", value.Int(3))
//	value.Walk(root, func(v value.Value) bool {
//		fmt.Println(v.Kind())
//		return true
//	})
package value

// Package encode serializes the normalized value tree to the supported
// output formats: XML (text) property list, binary property list, OpenStep
// property list, and JSON.
//
// The actual byte generation is delegated to external codecs; this package
// only lowers the value tree into the native Go types those codecs consume.
// Formats without a full native type repertoire get documented substitutes:
// JSON encodes dates as RFC 3339 strings and byte sequences as base64 text,
// and property-list formats represent null with the archiver's "$null"
// marker string.
package encode

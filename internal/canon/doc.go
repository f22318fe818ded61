// Package canon produces canonical JSON and content digests for state
// snapshots.
//
// The encoding follows RFC 8785 for the subset of values snapshots use:
// objects, arrays, strings, integers and booleans. Object keys are sorted by
// UTF-16 code units, strings are NFC normalised and only quote, backslash and
// control characters are escaped. Floats and null are rejected so that two
// equal states always encode to the same bytes.
package canon

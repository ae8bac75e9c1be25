// Package suite defines smoke test cases and where they come from.
//
// A Case is one HTTP request against a named target (reqres or catfact)
// plus the assertions its response must satisfy. Cases come from:
//   - the built-in catalog (Builtin)
//   - YAML case files (LoadFile)
//   - Excel workbooks, one case per row (LoadWorkbook)
//
// The live smoke tests in this package run the built-in catalog against the
// real services and only build with the smoke tag:
//
//	go test -tags smoke ./packages/suite/...
package suite

// Package assertions evaluates expectations against a single HTTP response.
//
// Supported assertions:
//   - Status code equality (status 200)
//   - JSON field equality (job == "Resident"), numeric-aware
//   - JSON field presence (token exists)
//   - Length of an array, string, or object field (data length 2)
//   - JSON Schema conformance of the whole body (schema get_user)
//   - Empty body (DELETE returning 204)
//
// Field paths use gjson syntax; bracket indexes such as data[0].fact are
// accepted and converted.
package assertions

// Package schema loads named JSON Schema documents and validates response
// bodies against them.
//
// Schemas are addressed by name ("get_user" resolves get_user.json). The
// default loader reads the schemas compiled into the binary; a directory
// loader lets a project ship its own. Nothing is cached: every Validate call
// reads and compiles the schema again.
package schema

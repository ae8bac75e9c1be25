// Package env loads .env files and expands ${VAR} references for smokecheck.
//
// A .env file is read before the config file so values such as
// REQRES_API_KEY can be kept out of version control.
package env

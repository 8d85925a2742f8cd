// Package routine defines the contract between puppilot and the jobs it runs.
//
// A Routine describes itself through Meta and does its work in Start, using
// the Sailer it is handed to open browser pages and to keep state between
// runs. Routines are registered in a Catalog and looked up by id when a sail
// is requested.
package routine

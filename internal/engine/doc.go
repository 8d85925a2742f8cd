// Package engine is the service facade over sails. It resolves routine ids
// against the catalog, starts each sail asynchronously against the shared
// browser and store, answers status queries for running and past sails,
// streams progress events, and persists every sail's outcome.
package engine

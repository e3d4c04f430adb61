// Package services implements the driving port interfaces.
//
// The orchestrator rebuilds tenant indexes, the query service retrieves,
// reranks and answers, and the tenant service manages uploads and cache
// state. Services only talk to adapters through driven ports.
package services

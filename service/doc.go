// Package service orchestrates the core components around the matching
// engine: command logging, matching, trade staging and snapshots.
//
// It provides the API for placing, cancelling, and querying orders,
// decoupled from network transports like gRPC.
package service

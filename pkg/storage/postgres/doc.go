// Package postgres manages PostgreSQL connections for the entitlement engine.
//
// # Overview
//
// The ConnectionManager holds a primary connection for writes and optional
// read replicas selected round-robin. Entitlement checks and billing-history
// listings are read-heavy and can run against replicas; every mutation
// (activation, slot reservation, ledger writes) goes to the primary.
//
// # Usage Example
//
//	cm, err := postgres.NewConnectionManager(postgres.ConnectionConfig{
//	    PrimaryURL: cfg.Database.URL,
//	    ReplicaURLs: cfg.Database.ReplicaURLs,
//	    MaxConns: 20,
//	})
//	defer cm.Close()
//
//	ledger := ledger.NewPostgresLedger(cm.Primary())
//
// # Schema
//
// EnsureSchema creates the subscriptions and billing_ledger tables if they
// do not exist, including the UNIQUE constraint on session_ref that backs
// payment idempotency.
package postgres

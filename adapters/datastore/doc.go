//go:build !wasm
// +build !wasm

// Package datastore implements authcore.Adapter on Google Cloud Datastore.
// It supports multi-tenancy through Datastore namespaces.
//
// # Datastore Kinds
//
//   - User: keyed by user id, with a lower-cased email property for lookups
//   - Account: keyed by "provider:providerAccountId"
//   - Session: keyed by session token
//   - VerificationToken: keyed by "identifier:token"
//
// # Usage
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	adapter := dsadapter.New(client, "tenant-123")
//	auth, err := authcore.New(ctx, authcore.Config{Adapter: adapter, ...})
package datastore

//go:build !wasm
// +build !wasm

// Package gorm implements authcore.Adapter with GORM. It supports any
// database that GORM supports (PostgreSQL, MySQL, SQLite, etc.).
//
// # Database Schema
//
// AutoMigrate creates the following tables:
//   - users: one row per person, email unique when set
//   - accounts: provider identities, unique on (provider, provider_account_id)
//   - sessions: database sessions keyed by session token
//   - verification_tokens: hashed email sign-in tokens, keyed by (identifier, token)
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{})
//	if err := gormadapter.AutoMigrate(db); err != nil {
//	    log.Fatal(err)
//	}
//	auth, err := authcore.New(ctx, authcore.Config{Adapter: gormadapter.New(db), ...})
package gorm

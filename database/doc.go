// Package database connects to the item store backends.
//
// # Supported Backends
//
//   - dynamodb: Amazon DynamoDB, conditional writes, optional owner index
//   - postgres: PostgreSQL using a pgx connection pool
//   - sqlite: SQLite via modernc.org/sqlite, for development and single nodes
//   - redis: Redis documents with per-owner index sets
//   - s3: JSON objects in an S3-compatible bucket
//   - file: JSON documents in a local directory
//
// # Usage
//
//	db, err := database.Open(ctx, database.Config{
//	    Type:   "sqlite",
//	    DSN:    "shelf.db",
//	    Tables: shelf.Tables{Items: "shelf_items"},
//	}, database.OpenOptions{Migrate: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	repo := db.GetRepo()
package database

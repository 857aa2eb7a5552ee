// Package config loads and validates configuration for the shelf server.
//
// YAML files, environment variables and CLI flags are merged and the result
// is checked with go-playground/validator.
//
// # Configuration Precedence
//
// Later sources override earlier ones:
//
//  1. Default values
//  2. Configuration file(s), merged left-to-right
//  3. Environment variables (SHELF_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctx = config.WithContext(ctx, cfg)
//
// # Environment Variables
//
// Keys map to upper-case names with dots replaced by underscores:
//   - server.port → SHELF_SERVER_PORT
//   - database.dsn → SHELF_DATABASE_DSN
//   - auth.user_pool_id → SHELF_AUTH_USER_POOL_ID
//
// # Sections
//
//   - Server: port, body limit, timeouts, auto_migrate
//   - Database: backend type, DSN, table names, AWS settings
//   - Auth: token verification mode (none, cognito, hmac) and its settings
//   - CORS: cross-origin resource sharing
//   - Metrics: Prometheus endpoint toggle
//   - Log: level and format
package config

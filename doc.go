// Package shelf is a small authenticated item store: an HTTP API that lets
// each signed-in user create, read, update and delete their own items.
//
// The package holds the domain model and the service. Transport, storage and
// token verification live in sibling packages and meet here through two
// interfaces.
//
// # Key Components
//
//   - Item: the persisted entity (id, owner, name, description, timestamps)
//   - ItemService: validates requests, assigns ids and timestamps, enforces ownership
//   - ItemRepo: persistence contract (DynamoDB, Redis, PostgreSQL, SQLite, files)
//   - TokenVerifier: bearer token to Subject (Cognito JWKS or HMAC keys)
//
// # Example Usage
//
//	service, err := shelf.NewItemService(repo, shelf.ServiceConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	item, err := service.Create(ctx, subject, shelf.CreateItem{
//	    Name:        &name,
//	    Description: &description,
//	})
//
// See the http package for the REST API and the database package for the
// storage backends.
package shelf

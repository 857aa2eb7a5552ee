// Package http exposes the shelf item API over HTTP.
//
// Routes:
//
//	GET    /health       liveness, never authenticated
//	GET    /items        list the caller's items
//	POST   /items        create an item
//	GET    /items/{id}   fetch one item
//	PUT    /items/{id}   replace name and description
//	DELETE /items/{id}   delete an item
//
// Item routes require "Authorization: Bearer <token>" when a
// shelf.TokenVerifier is configured. Rejected or missing tokens produce 401
// with a WWW-Authenticate header before any storage access.
//
// Every error body has the shape {"error": "<message>"}. HandleError is the
// single place where domain errors become status codes:
//
//	shelf.ValidationError     400 with the validation message
//	shelf.ErrUnauthorized     401
//	shelf.ErrForbidden        403
//	shelf.ErrNotFound         404 "Item not found"
//	shelf.ErrConflict         409
//	anything else             500 "Internal server error", logged
//
// # Usage
//
//	handler := http.NewHandler(&http.HandlerConfig{
//	    Verifier: verifier,
//	    Metrics:  http.NewMetrics(prometheus.NewRegistry()),
//	}, service)
//	srv := &nethttp.Server{Addr: ":5708", Handler: handler.Router()}
package http

// Package clientcli provides a client library for the shelf item API.
//
// Every call goes through Do, which attaches the bearer token from the
// configured TokenSource, decodes JSON on success and turns every failure
// into an *APIError. The package also manages named profiles and the
// credentials stored by "shelf-cli login".
//
// # Basic Usage
//
//	cfg := &clientcli.Config{Endpoint: "http://localhost:5708"}
//
//	client, err := clientcli.New(cfg, clientcli.WithTokenSource(&clientcli.FileTokenSource{
//		Path:    clientcli.DefaultCredentialsPath(),
//		Profile: "default",
//	}))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	item, err := client.CreateItem(ctx, clientcli.ItemInput{Name: "Widget", Description: "A widget"})
//
// # Errors
//
// Non-2xx responses carry the server's message ("message" field, else
// "error" field, else "an error occurred"). Transport failures have
// StatusCode 0. Use errors.Is with the sentinels:
//
//	if errors.Is(err, clientcli.ErrNotFound) {
//		// item does not exist
//	}
//
// # Profiles
//
// Profiles live in ~/.shelf/config.yaml:
//
//	profiles:
//	  - name: dev
//	    endpoint: http://localhost:5708
//	    default: true
//	  - name: prod
//	    endpoint: https://api.example.com
//	    region: us-east-1
//	    client_id: 3n4b5c6d7e8f
//
// Tokens are kept separately in ~/.shelf/credentials.yaml with mode 0600.
package clientcli

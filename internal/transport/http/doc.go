// Package http implements the HTTP handlers of the climex API. It is a
// thin layer between transport and the service packages: handlers parse
// and validate requests, call services, and render JSON responses.
//
// # Request Flow
//
// A request flows through these layers:
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → Repository
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Handler Structure
//
// Each handler follows the same pattern:
//
//	func (h *Handler) HandleSomething(w http.ResponseWriter, r *http.Request) {
//	    // 1. Parse and validate the request
//	    // 2. Call the service layer
//	    // 3. Render the response or map the error
//	}
//
// Request DTOs are validated with go-playground/validator struct tags.
// Service and engine errors are mapped onto typed API errors by
// mapServiceError; responses use the {success, data} envelope and errors
// the {success, error} envelope from the errors package.
//
// # WebSocket Support
//
// GET /ws upgrades with Gorilla WebSocket and registers the client with
// the progress hub; read and write pumps run in their own goroutines and
// the hub drops clients that cannot keep up.
package http

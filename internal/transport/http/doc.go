// Package http implements the HTTP handlers of the shareholding web service.
//
// Handlers stay thin: they bind and validate the request through
// middleware.RequestBinder, call a service, and render the result with
// chi/render. Every failure goes through errors.ErrorHandler, which turns
// it into an RFC 7807 problem response.
//
// Routes:
//
//	GET /api/shareholding/{code}?start=&end=&threshold=   trend and finder views
//	GET /api/shareholding/{code}/export?format=csv|xlsx   raw rows as a file
//	GET /api/unavailable                                  denylisted codes
//	GET /api/health, /api/health/ready, /api/health/live
//	GET /api/version
//	GET /metrics
//
// A range with no stored rows is a 200 with "available": false.
package http

// Package services holds the query side of the application, between the
// HTTP handlers and the reconciler.
//
// ShareholdingService validates a request, reconciles the range through a
// Puller (scraping missing dates on the way) and builds the trend and
// finder views from the stored rows. It also renders exports.
//
// HealthService reports liveness, readiness (store ping) and build info.
//
// Validation failures are returned as VALIDATION AppErrors wrapping the
// sentinels in errors.go, or as validator.ValidationErrors, so the HTTP
// error handler can map them to 400 responses.
package services

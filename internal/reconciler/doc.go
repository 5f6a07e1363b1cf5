// Package reconciler brings the store up to date for a security and date
// range, then reads the range back.
//
// Coverage is keyed on the requested date: a day with any stored row for
// the code is never queried again, even when the portal served a different
// business day for it. Missing days are queried in ascending order over one
// portal session and each day's rows are appended as soon as they are
// parsed, so an interrupted run keeps everything it finished.
//
// A code the portal reports as unavailable is added to the run's
// UnavailableSet and no further days are queried for it. Other per-day
// failures are logged and skipped. Storage failures abort the invocation.
//
// Calls for the same stock code are serialized within a process.
package reconciler

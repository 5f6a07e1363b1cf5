// Package operations runs batch reconciliations.
//
// Runner is a fixed-size worker pool. Stock codes are fed through a channel
// and every worker processes one code at a time from first missing date to
// last, so a single security is never split across workers. The run is
// best-effort: a failing or panicking code is recorded in the Summary and
// the remaining codes still run.
//
//	runner := operations.NewRunner(cfg.Prepopulate.Workers, rec, logger)
//	summary := runner.Run(ctx, codes, window.Start, window.End)
//
// Cancelling the context stops dispatch. Codes in flight notice the
// cancellation between dates and keep everything already stored.
//
// Every run gets a run id that is attached to its log lines.
package operations

// Package shared holds helpers used across packages.
//
// The testutil subpackage provides:
//
//   - BufferedSlogHandler, a slog.Handler that records log output for
//     assertions
//   - FakePortal, an in-memory portal session factory with injectable
//     unavailable, transient and invalid responses
//   - store and observation fixtures
//
// Example usage:
//
//	func TestPull(t *testing.T) {
//	    st := testutil.NewTestStore(t)
//	    portal := testutil.NewFakePortal()
//	    portal.SetUnavailable(7, time.Time{})
//	    // ...
//	}
//
// testutil is only imported by tests.
package shared

// Package api defines the public contracts of taskring: the bounded
// MPMC ring, the worker pool, metric exposition and shared error values.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Implementations live under core/ and are wired together by facade/.
// Keeping contracts in a leaf package lets the server, client and tests
// depend on behavior without importing implementation details.
package api

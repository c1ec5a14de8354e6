// Package core contains the login bridge's domain contracts, the in-memory
// socket registry, and the callback orchestration logic. Transport and storage
// adapters depend on this package; core must not depend on them.
package core

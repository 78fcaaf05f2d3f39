// Package core provides the business logic of the slab inventory.
//
// This package contains all domain logic independent of any transport or
// database. It can be used by the web handlers or tests without
// modification.
//
// # Architecture
//
//   - Normalizers: pure functions that map free-text spreadsheet cells onto
//     canonical statuses, categories, quantities, dates and links.
//   - Tokenizer: splits pasted or uploaded CSV/TSV text into header-keyed rows.
//   - Reconciler: groups rows by (slab_id, version) and creates or increments
//     one slab per group. Preview and commit share the same planning pass.
//   - AddSession: the add-slab workflow with duplicate detection, automatic
//     subtraction for outbound samples and confirmation for additions.
//   - Service: the entry point used by the HTTP layer. It bounds concurrent
//     imports, caches previews until they are committed and records metrics.
//
// # Persistence
//
// The core talks to storage only through [Store]. Quantity changes go through
// Store.AdjustQuantity, which is atomic, so concurrent imports and adds never
// lose an increment.
//
// # Error Handling
//
// Row and group failures inside an import are collected as strings in the
// result. Only failures that make the store unusable abort an import.
// Form problems are reported as [ValidationError]. [MapError] turns any error
// into a user message with a support code.
package core

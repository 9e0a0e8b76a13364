// Package toolcrib tracks a fixed catalog of shared, reusable hardware sets
// and records which projects currently hold how many units of each set.
//
// Toolcrib is designed as a library with a thin HTTP surface. The core type,
// Crib, composes reads and writes against a pluggable store to implement
// checkout, check-in and set creation while enforcing:
//
//   - A checkout never exceeds a set's current availability.
//   - A check-in never exceeds what the project actually holds, and never
//     pushes availability above capacity.
//   - The per-set availability counter and the per-project holding records
//     stay mutually consistent, even when one of a pair of dependent writes
//     fails.
//
// # Quick Start
//
// Create a crib with your preferred store:
//
//	import (
//	    "toolcrib"
//	    "toolcrib/store/mongo"
//	)
//
//	st, err := mongo.Open(ctx, uri, "crib", "hardware_sets", "project_checkouts")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	crib := toolcrib.New(st)
//	if err := crib.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer crib.Close()
//
//	err = crib.Checkout(ctx, "project123", "HWSet1", 5, "user42")
//
// # Consistency model
//
// A checkout or check-in touches two records: the hardware set document
// (availability) and the project's holding record (quantity). The store is
// only required to make a single-record read-modify-write atomic; there is
// no multi-record transaction. The reservation itself is one atomic
// conditional store operation, so availability can never be driven below
// zero. When the dependent holding write fails after a successful
// reservation, Crib issues a synchronous best-effort compensating write to
// undo the reservation and surfaces ErrOperationFailed to the caller. If the
// compensation also fails, availability is overcounted by the requested
// quantity relative to recorded holdings until manually reconciled; the
// condition is logged, never hidden behind a success response.
//
// Holding records exist only while their quantity is positive. A check-in
// that drives a holding to exactly zero deletes the record; absence of a
// record is the canonical representation of "nothing checked out".
//
// Authentication and authorization are out of scope and expected to be
// handled by an upstream gateway. The userId accompanying checkout and
// check-in requests is recorded in logs but not validated here.
package toolcrib

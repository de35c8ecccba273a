// Package enrollment contains the domain model of course admission and
// per-module progress tracking.
//
// The package defines:
//
//   - Entities: Course, Module, User, Enrollment, ModuleProgress
//   - Value objects: Status (the module progress lifecycle), AdmissionPolicy
//   - The progress state machine: CanTransition
//   - The capacity guard: CapacityGuard
//   - Ports implemented in infrastructure: Store, Tx, Catalog, Directory,
//     AdmissionLocker
//
// # Progress lifecycle
//
// A module progress row only ever moves forward:
//
//	NOT_STARTED -> IN_PROGRESS -> COMPLETED
//	NOT_STARTED -> COMPLETED
//
// COMPLETED is terminal. Self transitions are rejected.
//
// # Units of work
//
// Every write happens inside Store.InTx. The callback receives a Tx; if it
// returns an error (or panics) nothing it wrote is visible afterwards.
//
//	err := store.InTx(ctx, func(tx enrollment.Tx) error {
//	    if err := guard.Check(ctx, tx, course); err != nil {
//	        return err
//	    }
//	    return tx.InsertEnrollment(ctx, e)
//	})
package enrollment

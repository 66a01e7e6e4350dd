// Package rate implements the fixed-window attempt guard applied to the
// register, login, and refresh paths.
//
// # Window semantics
//
// Fixed-window counters: a failure increments the key's counter and arms the
// window TTL on the first hit; Allow rejects once the counter reaches the
// budget; success deletes the key. The rejection is uniform; it never
// reveals whether the underlying credential would have been correct.
//
// Two backends share the [Guard] contract: Redis for multi-node deployments
// and an in-process TTL cache for single-node use and tests.
//
// # What this package must NOT do
//
//   - Implement MFA lockout (that state lives on the user record).
//   - Be imported outside the authcore module.
package rate

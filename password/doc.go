// Package password implements slow salted hashing with Argon2id.
//
// The same primitive serves two very different workloads, selected through
// named cost profiles rather than per-call parameters:
//
//   - [ProfileCredential]: account passwords, high work factor.
//   - [ProfileBackupCode]: single-use recovery codes, lower work factor
//     because a batch of ten is hashed (and later compared) per operation.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verification reads the parameters back from the stored hash, so profile
// changes never invalidate existing hashes.
//
// # What this package must NOT do
//
//   - Store or retrieve secrets; callers supply plaintext and receive hashes.
//   - Import any other authcore package.
package password

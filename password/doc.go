// Package password hashes and verifies passwords with Argon2id.
//
// # Output format
//
// Hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsRehash] reports hashes made with weaker parameters so callers
// can re-hash after the next successful login. [Policy] bounds what a new
// password may look like; it is applied at registration, never at login.
//
// This package never stores or logs passwords.
package password

package internal

import "crypto/subtle"

// EqualSecret compares two secrets in constant time. Empty values never match.
func EqualSecret(presented, stored string) bool {
	if presented == "" || stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1
}

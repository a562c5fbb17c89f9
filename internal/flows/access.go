package flows

// UserState is the part of a user record token checks depend on.
type UserState struct {
	ID          string
	AuthVersion uint32
	Banned      bool
}

// AccessFailureKind classifies why a decoded token no longer matches its user.
type AccessFailureKind int

const (
	AccessFailureNone AccessFailureKind = iota
	AccessFailureUserMissing
	AccessFailureBanned
	AccessFailureStale
)

// CheckUser compares the version a token was minted with against the live
// record. A nil user means the account no longer exists. Ban wins over
// staleness because banning also bumps the version.
func CheckUser(tokenVersion uint32, user *UserState) AccessFailureKind {
	switch {
	case user == nil:
		return AccessFailureUserMissing
	case user.Banned:
		return AccessFailureBanned
	case user.AuthVersion != tokenVersion:
		return AccessFailureStale
	default:
		return AccessFailureNone
	}
}

package server

import "errors"

// errDuplicateSession guards registration against an identifier that is
// already live. The registry's retry loop consumes it; clients never see it.
var errDuplicateSession = errors.New("duplicate session")

// userError is a request failure whose text goes back to the requester
// verbatim. The reason tags the failure class for metrics; nothing beyond
// msg ever reaches the wire.
type userError struct {
	reason string
	msg    string
}

func (e *userError) Error() string { return e.msg }

var (
	errTargetNotFound   = &userError{"not_found", "User ID not found"}
	errSelfFriend       = &userError{"conflict", "Cannot add yourself"}
	errAlreadyFriends   = &userError{"conflict", "Already friends"}
	errDuplicateRequest = &userError{"conflict", "Friend request already sent"}
	errRequestNotFound  = &userError{"not_found", "Friend request not found"}
	errNotFriends       = &userError{"authorization", "Not friends with this user"}
	errMissingKey       = &userError{"validation", "Public key required"}
	errMissingFlags     = &userError{"validation", "Key status flags required"}
	errMissingTarget    = &userError{"validation", "Recipient required"}
	errMissingMessage   = &userError{"validation", "Encrypted message required"}
	errInvalidEnvelope  = &userError{"validation", "Invalid request"}
	errUnknownAction    = &userError{"unknown_action", "Unknown action"}
	errInternal         = &userError{"internal", "Internal server error"}
)

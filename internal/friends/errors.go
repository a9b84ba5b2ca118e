package friends

import "errors"

var (
	// ErrAlreadyFriends indicates the target is already in the friend list.
	ErrAlreadyFriends = errors.New("already friends")
	// ErrSelfFriend indicates a user tried to add themselves.
	ErrSelfFriend = errors.New("cannot add yourself as a friend")
)

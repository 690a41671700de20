package hub

import "strings"

// Room name conventions. Personal rooms carry one user's simultaneous
// connections; shared topic rooms are joinable by any connection.
const (
	GlobalChatRoom = "global-chat"

	personalRoomPrefix = "user-"
	questRoomPrefix    = "quest-"
)

// sharedTopics are the topic rooms a connection may subscribe to by name.
var sharedTopics = map[string]struct{}{
	GlobalChatRoom:             {},
	"crypto-updates":           {},
	"solana-updates":           {},
	"fear-greed-updates":       {},
	"graduated-tokens-updates": {},
}

// PersonalRoom returns the room name for a user's own connections.
func PersonalRoom(userID string) string {
	return personalRoomPrefix + userID
}

// QuestRoom returns the per-user quest progress room name.
func QuestRoom(userID string) string {
	return questRoomPrefix + userID
}

// IsPersonalRoom reports whether the name is a user's personal room.
func IsPersonalRoom(name string) bool {
	return strings.HasPrefix(name, personalRoomPrefix)
}

// IsSubscribableTopic reports whether a connection may join the named room
// via an explicit subscribe signal. Personal rooms are excluded; they are
// joined only through authenticate.
func IsSubscribableTopic(name string) bool {
	if _, ok := sharedTopics[name]; ok {
		return true
	}
	return strings.HasPrefix(name, questRoomPrefix)
}

// IsTopicRoom reports whether the name is a valid publish target for
// external tick producers. The global chat room is subscribable but not a
// tick target; chat traffic only enters it through the messaging service.
func IsTopicRoom(name string) bool {
	if name == GlobalChatRoom {
		return false
	}
	return IsSubscribableTopic(name)
}

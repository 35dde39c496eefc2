package cache

import "fmt"

// Key semantics:
// - roomKey(roomID):   room's live members (ZSet<userID, expireAtUnix>, score=expireAt)
// - namesKey(roomID):  userID -> display name map for the room (Hash)
// - cursorKey(...):    last reported cursor position per user (String, TTL)

const (
	keyRoomFmt   = "canvas:presence:room:{roomID:%s}"       // ZSet<userID, expireAtUnix>
	keyNamesFmt  = "canvas:presence:room:names:{roomID:%s}" // Hash<userID -> name>
	keyCursorFmt = "canvas:presence:cursor:%s:%s"
)

func roomKey(roomID string) string  { return fmt.Sprintf(keyRoomFmt, roomID) }
func namesKey(roomID string) string { return fmt.Sprintf(keyNamesFmt, roomID) }

func cursorKey(roomID, userID string) string {
	return fmt.Sprintf(keyCursorFmt, roomID, userID)
}

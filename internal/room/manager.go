package room

import "sync"

// User is one live connection's identity inside a room. ID is the
// connection's session id, unique per connection, not stable across
// reconnects.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// palette matches the original eight-color pool. Assignment is round-robin
// over join order and slots are never reclaimed, so colors recur once more
// than eight users have joined a room.
var palette = []string{
	"#e53935", "#8e24aa", "#3949ab", "#00897b",
	"#f4511e", "#6d4c41", "#43a047", "#fdd835",
}

type roomEntry struct {
	users        map[string]User
	nextColorIdx int
}

// Manager is the presence registry: per room, the set of currently
// connected users and the color cursor. Rooms are created on first
// reference and never destroyed.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*roomEntry
}

func NewManager() *Manager {
	return &Manager{rooms: make(map[string]*roomEntry)}
}

func (m *Manager) ensure(id string) *roomEntry {
	r, ok := m.rooms[id]
	if !ok {
		r = &roomEntry{users: make(map[string]User)}
		m.rooms[id] = r
	}
	return r
}

// EnsureRoom creates the room if needed. Idempotent.
func (m *Manager) EnsureRoom(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(id)
}

// AssignColor hands out the next palette entry for the room. The userID
// argument is kept for the registry's call shape, but assignment is a
// function of call count only: no identity stability, no release on leave.
func (m *Manager) AssignColor(roomID, userID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.ensure(roomID)
	color := palette[r.nextColorIdx%len(palette)]
	r.nextColorIdx++
	return color
}

// AddUser inserts or overwrites the user entry keyed by u.ID.
func (m *Manager) AddUser(roomID string, u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(roomID).users[u.ID] = u
}

// RemoveUser deletes the entry if present; unknown room or user is a no-op.
func (m *Manager) RemoveUser(roomID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return
	}
	delete(r.users, userID)
}

// Users returns a snapshot copy of the room's current users, in no
// particular order.
func (m *Manager) Users(roomID string) []User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return nil
	}
	users := make([]User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	return users
}

// PaletteSize reports how many distinct colors exist before reuse begins.
func PaletteSize() int { return len(palette) }

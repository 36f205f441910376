package engine

import "sync"

// sendBuffer is the per-connection outbound queue depth. A connection
// that cannot drain this many frames is treated as a slow consumer and
// frames to it are dropped rather than blocking fan-out.
const sendBuffer = 64

// Conn is the in-process state for one live transport connection. It is
// never persisted; a reconnecting client gets a fresh Conn and the
// reconnection resolver re-attaches it to its room.
type Conn struct {
	ID string

	mu     sync.Mutex
	ident  *Identity
	roomID string

	out    chan Envelope
	closed bool
}

func newConn(id string) *Conn {
	return &Conn{
		ID:  id,
		out: make(chan Envelope, sendBuffer),
	}
}

// Identity returns the declared identity, or nil before identify.
func (c *Conn) Identity() *Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ident
}

func (c *Conn) setIdentity(ident Identity) {
	c.mu.Lock()
	c.ident = &ident
	c.mu.Unlock()
}

// RoomID returns the room this connection is joined to, or "".
func (c *Conn) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *Conn) joinRoom(roomID string) {
	c.mu.Lock()
	c.roomID = roomID
	c.mu.Unlock()
}

func (c *Conn) leaveRoom() {
	c.mu.Lock()
	c.roomID = ""
	c.mu.Unlock()
}

// staff reports whether the connection identified as agent or admin.
func (c *Conn) staff() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ident != nil && c.ident.Role.Staff()
}

// send enqueues an envelope without blocking. Returns false if the
// connection is closed or its buffer is full. The mutex stays held
// across the enqueue: close() closes the channel under the same mutex,
// so a send racing a disconnect sees the closed flag instead of a
// closed channel.
func (c *Conn) send(env Envelope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}

	select {
	case c.out <- env:
		return true
	default:
		return false
	}
}

// Outbound returns the channel the transport's write loop drains.
func (c *Conn) Outbound() <-chan Envelope {
	return c.out
}

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.out)
}

// Registry maps live connection ids to their in-process state. It is
// owned by the server process holding the transport connections and is
// rebuilt empty on restart. No ambient state: construct one and inject
// it into the engine.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Conn)}
}

// Add registers a new connection and returns its state.
func (r *Registry) Add(connID string) *Conn {
	conn := newConn(connID)
	r.mu.Lock()
	r.conns[connID] = conn
	r.mu.Unlock()
	return conn
}

// Get returns the connection with the given id, or nil.
func (r *Registry) Get(connID string) *Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[connID]
}

// Remove deregisters a connection and closes its outbound channel.
func (r *Registry) Remove(connID string) *Conn {
	r.mu.Lock()
	conn := r.conns[connID]
	delete(r.conns, connID)
	r.mu.Unlock()
	if conn != nil {
		conn.close()
	}
	return conn
}

// Staff returns every connection currently identified as agent or admin.
func (r *Registry) Staff() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var staff []*Conn
	for _, conn := range r.conns {
		if conn.staff() {
			staff = append(staff, conn)
		}
	}
	return staff
}

// InRoom returns every connection currently joined to the given room.
func (r *Registry) InRoom(roomID string) []*Conn {
	if roomID == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var members []*Conn
	for _, conn := range r.conns {
		if conn.RoomID() == roomID {
			members = append(members, conn)
		}
	}
	return members
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

package event

// Connection lifecycle events, published by the packet handlers.

type PlayerLoggedIn struct {
	EntityID    int64
	AccountName string
	CharName    string
	RegionID    int32
}

type PlayerDisconnected struct {
	EntityID    int64
	SessionID   uint64
	AccountName string
}

package model

// Backends groups the storage used by the application, so it can be passed
// around as one value.
type Backends struct {
	Ledger Backend
	// Users is nil for backends without admin user support
	Users UsersStore
}

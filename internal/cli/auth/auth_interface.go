package auth

// TokenStore defines the interface for token storage operations
// This allows us to mock the keyring in tests
type TokenStore interface {
	SaveToken(serverURL, token string) error
	LoadToken(serverURL string) (string, error)
	DeleteToken(serverURL string) error
}

// defaultTokenStore implements TokenStore using the OS keyring
type defaultTokenStore struct{}

var Default TokenStore = &defaultTokenStore{}

func (d *defaultTokenStore) SaveToken(serverURL, token string) error {
	return SaveToken(serverURL, token)
}

func (d *defaultTokenStore) LoadToken(serverURL string) (string, error) {
	return LoadToken(serverURL)
}

func (d *defaultTokenStore) DeleteToken(serverURL string) error {
	return DeleteToken(serverURL)
}

// ServerTokens binds a TokenStore to one gateway, giving the session store a
// single-slot view of it
type ServerTokens struct {
	store     TokenStore
	serverURL string
}

// ForServer scopes store to serverURL
func ForServer(store TokenStore, serverURL string) *ServerTokens {
	return &ServerTokens{store: store, serverURL: serverURL}
}

func (s *ServerTokens) LoadToken() (string, error) {
	return s.store.LoadToken(s.serverURL)
}

func (s *ServerTokens) SaveToken(token string) error {
	return s.store.SaveToken(s.serverURL, token)
}

func (s *ServerTokens) DeleteToken() error {
	return s.store.DeleteToken(s.serverURL)
}

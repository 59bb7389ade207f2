package domain

// TokenSet is the raw token response issued by the identity provider.
// It is stored verbatim as the session value so provider-issued claims
// survive refresh-writes without the gateway enumerating them.
type TokenSet map[string]any

// AccessToken returns the access_token field, or "" when absent.
func (t TokenSet) AccessToken() string {
	return t.stringField("access_token")
}

// RefreshToken returns the refresh_token field, or "" when absent.
func (t TokenSet) RefreshToken() string {
	return t.stringField("refresh_token")
}

// Valid reports whether the token set carries both tokens a session
// needs to be usable.
func (t TokenSet) Valid() bool {
	return t.AccessToken() != "" && t.RefreshToken() != ""
}

func (t TokenSet) stringField(name string) string {
	v, ok := t[name]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

package model

// Credentials are the caller's OAuth 1.0a consumer and access tokens. They
// live only for the duration of one attempt.
type Credentials struct {
	Key         string
	KeySecret   string
	Token       string
	TokenSecret string
}

// Missing returns the wire names of any empty credential fields, in request
// order.
func (c Credentials) Missing() []string {
	var missing []string
	if c.Key == "" {
		missing = append(missing, "api_key")
	}
	if c.KeySecret == "" {
		missing = append(missing, "api_secret")
	}
	if c.Token == "" {
		missing = append(missing, "access_token")
	}
	if c.TokenSecret == "" {
		missing = append(missing, "access_secret")
	}
	return missing
}

// Attempt is one request to publish a post. Proxy holds the raw proxy
// descriptor (keys "http", "https", "socks5"); nil or empty means no proxy.
type Attempt struct {
	ID          string
	Credentials Credentials
	Text        string
	Image       []byte
	Proxy       map[string]string
}

// HasImage reports whether the attempt carries a media payload.
func (a Attempt) HasImage() bool {
	return len(a.Image) > 0
}

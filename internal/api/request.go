package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/die-net/relaypost/internal/model"
)

var requiredFields = []string{"api_key", "api_secret", "access_token", "access_secret", "text"}

// requestError is a 400 with the redacted body echoed back.
type requestError struct {
	msg  string
	body map[string]any
}

func (e *requestError) Error() string { return e.msg }

// decodeAttempt reads a /post body. Any validation failure is a
// *requestError.
func decodeAttempt(r io.Reader) (model.Attempt, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return model.Attempt{}, &requestError{msg: "could not read request body: " + err.Error()}
	}

	var body map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&body); err != nil || body == nil {
		return model.Attempt{}, &requestError{msg: "request body must be a JSON object"}
	}

	var missing []string
	str := func(k string) string {
		s, _ := body[k].(string)
		return s
	}
	for _, k := range requiredFields {
		if str(k) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return model.Attempt{}, &requestError{
			msg:  "Missing required fields: " + strings.Join(missing, ", "),
			body: body,
		}
	}

	a := model.Attempt{
		Credentials: model.Credentials{
			Key:         str("api_key"),
			KeySecret:   str("api_secret"),
			Token:       str("access_token"),
			TokenSecret: str("access_secret"),
		},
		Text: str("text"),
	}

	if v, ok := body["image"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return model.Attempt{}, &requestError{msg: "image must be a base64 string", body: body}
		}
		img, err := decodeImage(s)
		if err != nil {
			return model.Attempt{}, &requestError{msg: "image is not valid base64: " + err.Error(), body: body}
		}
		a.Image = img
	}

	if v, ok := body["proxy"]; ok && v != nil {
		p, err := proxyMap(v)
		if err != nil {
			return model.Attempt{}, &requestError{msg: err.Error(), body: body}
		}
		a.Proxy = p
	}

	return a, nil
}

// decodeImage accepts plain base64 or a data URL.
func decodeImage(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 {
			return nil, errors.New("malformed data URL")
		}
		s = s[i+1:]
	}
	if s == "" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		b, err = base64.RawStdEncoding.DecodeString(s)
	}
	return b, err
}

func proxyMap(v any) (map[string]string, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("proxy must be an object with http, https or socks5 keys")
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		switch val := val.(type) {
		case nil:
		case string:
			out[k] = val
		default:
			return nil, fmt.Errorf("proxy.%s must be a string", k)
		}
	}
	return out, nil
}

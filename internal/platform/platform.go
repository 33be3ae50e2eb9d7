// Package platform talks to the social platform's two write endpoints:
// media upload and post creation. Calls go through whatever *http.Client
// the caller supplies, so the egress route is chosen per attempt.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/die-net/relaypost/internal/model"
)

const (
	DefaultUploadURL = "https://upload.twitter.com/1.1/media/upload.json"
	DefaultPostURL   = "https://api.twitter.com/2/tweets"

	maxResponseBytes = 1 << 20
	maxErrorBody     = 512
)

// ErrMissingID means the platform answered 2xx without a usable identifier.
var ErrMissingID = errors.New("platform: response carries no id")

// StatusError is a non-2xx platform response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("platform status %d", e.StatusCode)
	}
	return fmt.Sprintf("platform status %d: %s", e.StatusCode, e.Body)
}

// Client calls the upload and post endpoints.
type Client struct {
	UploadURL string
	PostURL   string

	now   func() time.Time
	nonce func() string
}

// New returns a Client. Empty URLs fall back to the defaults.
func New(uploadURL, postURL string) *Client {
	if uploadURL == "" {
		uploadURL = DefaultUploadURL
	}
	if postURL == "" {
		postURL = DefaultPostURL
	}
	return &Client{
		UploadURL: uploadURL,
		PostURL:   postURL,
		now:       time.Now,
		nonce:     func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

// UploadMedia uploads image as a multipart "media" field and returns the
// media id.
func (c *Client) UploadMedia(ctx context.Context, hc *http.Client, creds model.Credentials, image []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("media", "image.png")
	if err != nil {
		return "", fmt.Errorf("media form: %w", err)
	}
	if _, err := fw.Write(image); err != nil {
		return "", fmt.Errorf("media form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("media form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.UploadURL, &body)
	if err != nil {
		return "", fmt.Errorf("media upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := c.do(hc, req, creds, &out); err != nil {
		return "", fmt.Errorf("media upload: %w", err)
	}
	if out.MediaIDString == "" {
		return "", fmt.Errorf("media upload: %w", ErrMissingID)
	}
	return out.MediaIDString, nil
}

type createPostRequest struct {
	Text  string     `json:"text"`
	Media *postMedia `json:"media,omitempty"`
}

type postMedia struct {
	MediaIDs []string `json:"media_ids"`
}

// CreatePost publishes text with optional media ids and returns the post
// id.
func (c *Client) CreatePost(ctx context.Context, hc *http.Client, creds model.Credentials, text string, mediaIDs []string) (string, error) {
	in := createPostRequest{Text: text}
	if len(mediaIDs) > 0 {
		in.Media = &postMedia{MediaIDs: mediaIDs}
	}
	b, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("marshal post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.PostURL, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("create post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(hc, req, creds, &out); err != nil {
		return "", fmt.Errorf("create post: %w", err)
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("create post: %w", ErrMissingID)
	}
	return out.Data.ID, nil
}

func (c *Client) do(hc *http.Client, req *http.Request, creds model.Credentials, out any) error {
	c.sign(req, creds, nil)
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return &StatusError{StatusCode: resp.StatusCode, Body: msg}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMissingID, err)
	}
	return nil
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bookworm/internal/util"
	"bookworm/pkg/domain"
)

// TokenSource yields the current bearer token, or "" when no session exists.
type TokenSource interface {
	Token() string
}

// Client calls the remote BookWorm service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// NewClient constructs a service client. The timeout is the ceiling for any
// in-flight request; zero means 10s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UseTokenSource wires the session store in after construction. Requests
// issued without a source (or with an empty token) carry no Authorization
// header.
func (c *Client) UseTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

// Login exchanges credentials for a token and profile.
func (c *Client) Login(ctx context.Context, email, password string) (domain.Credentials, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", payload, &resp); err != nil {
		return domain.Credentials{}, err
	}
	return domain.Credentials{Token: resp.Token, User: resp.User}, nil
}

// Register creates an account and returns a token and profile, same shape as Login.
func (c *Client) Register(ctx context.Context, username, email, password string) (domain.Credentials, error) {
	payload := map[string]string{"username": username, "email": email, "password": password}
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", payload, &resp); err != nil {
		return domain.Credentials{}, err
	}
	return domain.Credentials{Token: resp.Token, User: resp.User}, nil
}

// BookPage is one page of the feed plus the server's page count for the query.
type BookPage struct {
	Books      []domain.Book `json:"books"`
	TotalPages int           `json:"totalPages"`
}

func (c *Client) ListBooks(ctx context.Context, page, limit int) (BookPage, error) {
	path := fmt.Sprintf("/api/books?page=%d&limit=%d", page, limit)
	var resp BookPage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return BookPage{}, err
	}
	return resp, nil
}

func (c *Client) ListMyBooks(ctx context.Context) ([]domain.Book, error) {
	var resp struct {
		Books []domain.Book `json:"books"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/books/user", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Books, nil
}

// CreateBook posts a review. The image travels as a base64 data URL inside
// the JSON body, per the service contract.
func (c *Client) CreateBook(ctx context.Context, title, caption string, ratings int, imageDataURL string) (domain.Book, error) {
	payload := map[string]any{
		"title":   title,
		"caption": caption,
		"ratings": ratings,
		"image":   imageDataURL,
	}
	var book domain.Book
	if err := c.doJSON(ctx, http.MethodPost, "/api/books", payload, &book); err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

func (c *Client) DeleteBook(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/books/"+id, nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", util.NewRequestID())
	addAuthHeader(req, c.currentToken())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Message
		if msg == "" {
			msg = errResp.Error
		}
		if msg == "" {
			msg = resp.Status
		}
		return &Error{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) currentToken() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

func addAuthHeader(req *http.Request, token string) {
	if strings.TrimSpace(token) == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

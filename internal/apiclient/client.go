package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fikriandhika/go-storefront/internal/auth"
	"github.com/fikriandhika/go-storefront/internal/catalog"
	"github.com/fikriandhika/go-storefront/internal/orders"
)

// Client is the session's HTTP client for the storefront API. It implements
// the secret-source, order-writer and order-reader interfaces the checkout
// controller and history loader consume.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	mu    sync.Mutex
	token string
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SetToken installs the session token sent as a bearer on subsequent calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) CreateIntent(ctx context.Context, amountCents int) (string, error) {
	var out struct {
		ClientSecret string `json:"client_secret"`
	}
	path := "/payments/create?total=" + strconv.Itoa(amountCents)
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return "", err
	}
	return out.ClientSecret, nil
}

func (c *Client) SaveOrder(ctx context.Context, o orders.Order) error {
	return c.do(ctx, http.MethodPost, "/orders", o, nil)
}

func (c *Client) GetUserOrders(ctx context.Context, userID string) ([]orders.Order, error) {
	var out []orders.Order
	if err := c.do(ctx, http.MethodGet, "/users/"+userID+"/orders", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Products(ctx context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*auth.User, error) {
	return c.authCall(ctx, "/auth/signup", email, password)
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*auth.User, error) {
	return c.authCall(ctx, "/auth/signin", email, password)
}

func (c *Client) SignOut(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/signout", nil, nil)
	if err == nil {
		c.SetToken("")
	}
	return err
}

func (c *Client) authCall(ctx context.Context, path, email, password string) (*auth.User, error) {
	body := map[string]string{"email": email, "password": password}
	var out struct {
		User  *auth.User `json:"user"`
		Token string     `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return out.User, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.Lock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.Unlock()

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			return fmt.Errorf("api: %s", e.Error)
		}
		return fmt.Errorf("api: %s %s returned %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ruotalab/wheelstudio/internal/domain"
)

// Client talks to the Shopify storefront cart. The core only guarantees the
// (variant id, quantity) pair list; this adapter owns the transport.
type Client struct {
	storeURL   string
	httpClient *http.Client
}

func NewClient(storeURL string) *Client {
	return &Client{
		storeURL:   strings.TrimRight(strings.TrimSpace(storeURL), "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type cartItem struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

type cartAddReq struct {
	Items []cartItem `json:"items"`
}

// PermalinkURL builds the /cart/{id}:{qty},... checkout permalink used by
// the buy-now button.
func (c *Client) PermalinkURL(items []domain.LineItem) (string, error) {
	cart, err := toCartItems(items)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(cart))
	for _, it := range cart {
		parts = append(parts, fmt.Sprintf("%d:%d", it.ID, it.Quantity))
	}
	return c.storeURL + "/cart/" + strings.Join(parts, ","), nil
}

// AddToCart POSTs the items to the storefront cart endpoint.
func (c *Client) AddToCart(ctx context.Context, items []domain.LineItem) error {
	cart, err := toCartItems(items)
	if err != nil {
		return err
	}
	buf, err := json.Marshal(cartAddReq{Items: cart})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.storeURL+"/cart/add.js", bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cart add request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		var shopErr struct {
			Message     string `json:"message"`
			Description string `json:"description"`
		}
		if err := json.Unmarshal(body, &shopErr); err == nil && shopErr.Description != "" {
			return fmt.Errorf("cart add status %d: %s", res.StatusCode, shopErr.Description)
		}
		return fmt.Errorf("cart add status %d: %s", res.StatusCode, string(body))
	}
	return nil
}

// toCartItems validates the identifier contract at the boundary: an empty
// list or a non-numeric variant id is a defect upstream, not something to
// paper over here.
func toCartItems(items []domain.LineItem) ([]cartItem, error) {
	if len(items) == 0 {
		return nil, domain.ErrNothingToSubmit
	}
	out := make([]cartItem, 0, len(items))
	for _, it := range items {
		id, err := strconv.ParseInt(it.VariantID, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("option %s has invalid variant id %q", it.Code, it.VariantID)
		}
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		out = append(out, cartItem{ID: id, Quantity: qty})
	}
	return out, nil
}

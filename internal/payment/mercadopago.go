package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/SrFlag/Melos-Company/internal/domain"
)

const (
	DefaultBaseURL = "https://api.mercadopago.com"
	currencyBRL    = "BRL"
)

var (
	ErrPreferenceRejected = errors.New("payment preference rejected")
	ErrEmptyInitPoint     = errors.New("payment gateway returned empty checkout url")
	nonDigits             = regexp.MustCompile(`\D`)
)

// PreferenceRequest describes the hosted checkout to create for one order.
type PreferenceRequest struct {
	IdempotencyKey string
	OrderID        int64
	Items          []domain.OrderItem
	Buyer          domain.Buyer
	ReturnBaseURL  string
}

type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

type PreferenceCreator interface {
	CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error)
}

type MercadoPagoClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

func NewMercadoPagoClient(baseURL, accessToken string, httpClient *http.Client) *MercadoPagoClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &MercadoPagoClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  httpClient,
	}
}

type preferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	PictureURL string  `json:"picture_url,omitempty"`
	CurrencyID string  `json:"currency_id"`
}

type preferencePayer struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	Identification struct {
		Type   string `json:"type"`
		Number string `json:"number"`
	} `json:"identification"`
}

type backURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type preferenceBody struct {
	Items             []preferenceItem `json:"items"`
	Payer             preferencePayer  `json:"payer"`
	ExternalReference string           `json:"external_reference"`
	BackURLs          backURLs         `json:"back_urls"`
}

type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

func buildBody(req PreferenceRequest) preferenceBody {
	base := strings.TrimRight(req.ReturnBaseURL, "/")
	orderRef := strconv.FormatInt(req.OrderID, 10)

	items := make([]preferenceItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = preferenceItem{
			ID:         strconv.FormatInt(it.ProductID, 10),
			Title:      it.ProductName,
			Quantity:   it.Quantity,
			UnitPrice:  it.Price.InexactFloat64(),
			PictureURL: it.ImageURL,
			CurrencyID: currencyBRL,
		}
	}

	var payer preferencePayer
	payer.Email = req.Buyer.Email
	payer.Name = req.Buyer.Name
	payer.Identification.Type = "CPF"
	payer.Identification.Number = DigitsOnly(req.Buyer.TaxID)

	return preferenceBody{
		Items:             items,
		Payer:             payer,
		ExternalReference: orderRef,
		BackURLs: backURLs{
			Success: base + "/success?order=" + orderRef,
			Failure: base + "/checkout",
			Pending: base + "/checkout",
		},
	}
}

// CreatePreference registers a hosted checkout and returns its redirect url.
func (c *MercadoPagoClient) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	payload, err := json.Marshal(buildBody(req))
	if err != nil {
		return nil, fmt.Errorf("marshal preference: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout/preferences", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build preference request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("X-Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach mercado pago: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read preference response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("%w (%d): %s", ErrPreferenceRejected, resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("%w (%d): %s", ErrPreferenceRejected, resp.StatusCode, string(body))
	}

	var pref Preference
	if err := json.Unmarshal(body, &pref); err != nil {
		return nil, fmt.Errorf("failed to parse preference response: %w", err)
	}
	if pref.InitPoint == "" {
		return nil, ErrEmptyInitPoint
	}
	return &pref, nil
}

func DigitsOnly(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

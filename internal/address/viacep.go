package address

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/SrFlag/Melos-Company/internal/domain"
)

const DefaultBaseURL = "https://viacep.com.br"

var (
	ErrInvalidPostalCode = errors.New("postal code must have 8 digits")
	ErrNotFound          = errors.New("postal code not found")
	nonDigits            = regexp.MustCompile(`\D`)
)

type Lookup interface {
	Lookup(ctx context.Context, postalCode string) (domain.Address, error)
}

type ViaCEPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewViaCEPClient(baseURL string, httpClient *http.Client) *ViaCEPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &ViaCEPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type viaCEPResponse struct {
	CEP        string `json:"cep"`
	Logradouro string `json:"logradouro"`
	Bairro     string `json:"bairro"`
	Localidade string `json:"localidade"`
	UF         string `json:"uf"`
	// the service sends either true or "true"
	Erro any `json:"erro"`
}

func (r viaCEPResponse) failed() bool {
	switch v := r.Erro.(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

// NormalizePostalCode strips formatting and checks the 8 digit CEP length.
func NormalizePostalCode(postalCode string) (string, error) {
	digits := nonDigits.ReplaceAllString(postalCode, "")
	if len(digits) != 8 {
		return "", ErrInvalidPostalCode
	}
	return digits, nil
}

// Lookup resolves street, district, city and state for a CEP. Number and
// complement are left for the buyer.
func (c *ViaCEPClient) Lookup(ctx context.Context, postalCode string) (domain.Address, error) {
	cep, err := NormalizePostalCode(postalCode)
	if err != nil {
		return domain.Address{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/ws/%s/json/", c.baseURL, cep), nil)
	if err != nil {
		return domain.Address{}, fmt.Errorf("build viacep request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Address{}, fmt.Errorf("failed to reach viacep: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Address{}, fmt.Errorf("viacep returned status %d", resp.StatusCode)
	}

	var body viaCEPResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Address{}, fmt.Errorf("failed to parse viacep response: %w", err)
	}
	if body.failed() {
		return domain.Address{}, ErrNotFound
	}

	return domain.Address{
		PostalCode: cep,
		Street:     body.Logradouro,
		District:   body.Bairro,
		City:       body.Localidade,
		State:      body.UF,
	}, nil
}

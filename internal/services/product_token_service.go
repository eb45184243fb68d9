package services

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	jose "github.com/go-jose/go-jose/v4"
)

var (
	// ErrProductTokenInvalid indicates the token could not be decrypted or parsed.
	ErrProductTokenInvalid = errors.New("product token: invalid token")
	// ErrProductTokenExpired indicates the token is past its validity window.
	ErrProductTokenExpired = errors.New("product token: expired")
	// ErrProductInvalid indicates the product attributes fail verification.
	ErrProductInvalid = errors.New("product token: invalid product")
)

const maxProductDescriptionLength = 1000

// ProductTokenServiceDeps bundles collaborators for the product token service.
type ProductTokenServiceDeps struct {
	EncryptionKey string
	TTL           time.Duration
	Clock         func() time.Time
}

type productTokenService struct {
	key   []byte
	ttl   time.Duration
	clock func() time.Time
}

var _ ProductTokenService = (*productTokenService)(nil)

// NewProductTokenService builds the JWE-based product token service. The
// configured key material is stretched to a 256-bit AES-GCM key.
func NewProductTokenService(deps ProductTokenServiceDeps) (ProductTokenService, error) {
	if strings.TrimSpace(deps.EncryptionKey) == "" {
		return nil, errors.New("product token service: encryption key is required")
	}
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	key := sha256.Sum256([]byte(deps.EncryptionKey))
	return &productTokenService{
		key: key[:],
		ttl: ttl,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

type productTokenClaims struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Image       string  `json:"image,omitempty"`
	Price       float64 `json:"price"`
	Gst         float64 `json:"gst"`
	IssuedAt    int64   `json:"iat"`
	ExpiresAt   int64   `json:"exp"`
}

// Encrypt seals the product attributes into an opaque compact JWE.
func (s *productTokenService) Encrypt(ctx context.Context, product Product) (string, error) {
	if err := validateProduct(product); err != nil {
		return "", err
	}

	now := s.clock()
	claims := productTokenClaims{
		Name:        strings.TrimSpace(product.Name),
		Description: strings.TrimSpace(product.Description),
		Image:       strings.TrimSpace(product.Image),
		Price:       product.Price,
		Gst:         product.Gst,
		IssuedAt:    now.Unix(),
		ExpiresAt:   now.Add(s.ttl).Unix(),
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("product token: marshal claims: %w", err)
	}

	encrypter, err := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{Algorithm: jose.DIRECT, Key: s.key},
		(&jose.EncrypterOptions{}).WithType("JWE"),
	)
	if err != nil {
		return "", fmt.Errorf("product token: build encrypter: %w", err)
	}
	object, err := encrypter.Encrypt(payload)
	if err != nil {
		return "", fmt.Errorf("product token: encrypt: %w", err)
	}
	token, err := object.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("product token: serialize: %w", err)
	}
	return token, nil
}

// Verify decrypts the token and revalidates the product attributes.
func (s *productTokenService) Verify(ctx context.Context, token string) (Product, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Product{}, fmt.Errorf("%w: empty token", ErrProductTokenInvalid)
	}

	object, err := jose.ParseEncrypted(token,
		[]jose.KeyAlgorithm{jose.DIRECT},
		[]jose.ContentEncryption{jose.A256GCM},
	)
	if err != nil {
		return Product{}, fmt.Errorf("%w: %v", ErrProductTokenInvalid, err)
	}
	payload, err := object.Decrypt(s.key)
	if err != nil {
		return Product{}, fmt.Errorf("%w: %v", ErrProductTokenInvalid, err)
	}

	var claims productTokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Product{}, fmt.Errorf("%w: %v", ErrProductTokenInvalid, err)
	}
	if claims.ExpiresAt > 0 && s.clock().Unix() > claims.ExpiresAt {
		return Product{}, ErrProductTokenExpired
	}

	product := Product{
		Name:        claims.Name,
		Description: claims.Description,
		Image:       claims.Image,
		Price:       claims.Price,
		Gst:         claims.Gst,
	}
	if err := validateProduct(product); err != nil {
		return Product{}, err
	}
	return product, nil
}

func validateProduct(product Product) error {
	if strings.TrimSpace(product.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrProductInvalid)
	}
	if product.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrProductInvalid)
	}
	if product.Gst <= 0 {
		return fmt.Errorf("%w: gst must be positive", ErrProductInvalid)
	}
	if product.Gst >= product.Price {
		return fmt.Errorf("%w: gst must be below the inclusive price", ErrProductInvalid)
	}
	if len(product.Description) > maxProductDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrProductInvalid, maxProductDescriptionLength)
	}
	if image := strings.TrimSpace(product.Image); image != "" {
		parsed, err := url.Parse(image)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("%w: image must be an http(s) URL", ErrProductInvalid)
		}
	}
	return nil
}

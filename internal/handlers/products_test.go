package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	"github.com/theranostics-labs/portal-api/internal/services"
)

type stubProductTokenService struct {
	encryptFn func(context.Context, domain.Product) (string, error)
	verifyFn  func(context.Context, string) (domain.Product, error)
}

func (s *stubProductTokenService) Encrypt(ctx context.Context, product domain.Product) (string, error) {
	if s.encryptFn != nil {
		return s.encryptFn(ctx, product)
	}
	return "", errors.New("not implemented")
}

func (s *stubProductTokenService) Verify(ctx context.Context, token string) (domain.Product, error) {
	if s.verifyFn != nil {
		return s.verifyFn(ctx, token)
	}
	return domain.Product{}, errors.New("not implemented")
}

func newProductRouter(service services.ProductTokenService) chi.Router {
	router := chi.NewRouter()
	router.Route("/", NewProductHandlers(service).Routes)
	return router
}

func TestProductEncrypt(t *testing.T) {
	var captured domain.Product
	service := &stubProductTokenService{
		encryptFn: func(ctx context.Context, product domain.Product) (string, error) {
			captured = product
			return "sealed-token", nil
		},
	}

	router := newProductRouter(service)
	body := []byte(`{"name":"DNA Testing Kit","description":"Whole genome","image":"https://cdn.example.com/kit.png","price":249.5,"gst":32.54}`)
	req := httptest.NewRequest(http.MethodPost, "/product/encrypt", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	env := decodeEnvelope(t, rr)
	if env.Data["token"] != "sealed-token" {
		t.Fatalf("expected token, got %v", env.Data["token"])
	}
	if captured.Name != "DNA Testing Kit" || captured.Price != 249.5 || captured.Gst != 32.54 {
		t.Fatalf("unexpected product forwarded: %+v", captured)
	}
}

func TestProductVerifyFormatsAmounts(t *testing.T) {
	service := &stubProductTokenService{
		verifyFn: func(ctx context.Context, token string) (domain.Product, error) {
			if token != "sealed-token" {
				t.Fatalf("unexpected token %q", token)
			}
			return domain.Product{Name: "DNA Testing Kit", Price: 249.5, Gst: 32.54}, nil
		},
	}

	router := newProductRouter(service)
	req := httptest.NewRequest(http.MethodPost, "/product/verify", bytes.NewReader([]byte(`{"token":"sealed-token"}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	env := decodeEnvelope(t, rr)
	if env.Data["price"] != "249.50" || env.Data["gst"] != "32.54" {
		t.Fatalf("expected formatted amounts, got %+v", env.Data)
	}
}

func TestProductVerifyExpiredToken(t *testing.T) {
	service := &stubProductTokenService{
		verifyFn: func(ctx context.Context, token string) (domain.Product, error) {
			return domain.Product{}, services.ErrProductTokenExpired
		},
	}

	router := newProductRouter(service)
	req := httptest.NewRequest(http.MethodPost, "/product/verify", bytes.NewReader([]byte(`{"token":"stale"}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	env := decodeEnvelope(t, rr)
	if env.Data["error"] != "product_token_expired" {
		t.Fatalf("expected product_token_expired code, got %v", env.Data["error"])
	}
}

func TestProductVerifyRequiresToken(t *testing.T) {
	router := newProductRouter(&stubProductTokenService{})
	req := httptest.NewRequest(http.MethodPost, "/product/verify", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestProductEncryptRejectsMalformedBody(t *testing.T) {
	router := newProductRouter(&stubProductTokenService{})
	req := httptest.NewRequest(http.MethodPost, "/product/encrypt", bytes.NewReader([]byte(`{"price":"abc"`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	"github.com/theranostics-labs/portal-api/internal/repositories"
)

var (
	// ErrCustomerInvalidInput signals the caller provided invalid data.
	ErrCustomerInvalidInput = errors.New("customer: invalid input")
	// ErrCustomerNotFound indicates the customer could not be located.
	ErrCustomerNotFound = errors.New("customer: not found")
)

// CustomerServiceDeps bundles collaborators for the admin customer service.
type CustomerServiceDeps struct {
	Customers repositories.CustomerRepository
}

type customerService struct {
	customers repositories.CustomerRepository
}

var _ CustomerService = (*customerService)(nil)

// NewCustomerService constructs the admin customer service.
func NewCustomerService(deps CustomerServiceDeps) (CustomerService, error) {
	if deps.Customers == nil {
		return nil, errors.New("customer service: repository is required")
	}
	return &customerService{customers: deps.Customers}, nil
}

// ListCustomers returns a page of purchaser records.
func (s *customerService) ListCustomers(ctx context.Context, pager Pagination) (domain.CursorPage[Customer], error) {
	return s.customers.List(ctx, pager)
}

// GetCustomer returns a single purchaser by ID; an email address is also
// accepted since checkout keys customers by their email.
func (s *customerService) GetCustomer(ctx context.Context, customerID string) (Customer, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return Customer{}, fmt.Errorf("%w: customer id is required", ErrCustomerInvalidInput)
	}

	if strings.Contains(customerID, "@") {
		customer, err := s.customers.FindByEmail(ctx, strings.ToLower(customerID))
		if err != nil {
			return Customer{}, translateCustomerError(err)
		}
		return customer, nil
	}

	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return Customer{}, translateCustomerError(err)
	}
	return customer, nil
}

func translateCustomerError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrCustomerNotFound, err)
	}
	return err
}

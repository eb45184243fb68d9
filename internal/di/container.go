package di

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/theranostics-labs/portal-api/internal/payments"
	"github.com/theranostics-labs/portal-api/internal/platform/config"
	"github.com/theranostics-labs/portal-api/internal/repositories"
	"github.com/theranostics-labs/portal-api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
// Concrete implementations are assembled in NewContainer.
type Services struct {
	Checkout      services.CheckoutService
	Discounts     services.DiscountService
	ProductTokens services.ProductTokenService
	Orders        services.OrderService
	Customers     services.CustomerService
	Inventory     services.InventoryService
	Notifications services.NotificationService
	Invoices      services.InvoiceService
	Registrations services.KitRegistrationService
	System        services.SystemService
}

// Adapters carries external infrastructure the container wires into services.
// Payments is mandatory; the rest degrade gracefully when absent (events are
// not published, invoices are not generated).
type Adapters struct {
	Payments      payments.Provider
	Publisher     services.OrderEventPublisher
	InvoiceWriter services.InvoiceObjectWriter
	InvoiceSigner services.InvoiceURLSigner
	Logger        *zap.Logger
	Clock         func() time.Time
	Build         services.BuildInfo
	StartedAt     time.Time
}

// Container wires repositories, services, and supporting infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependency graph. Tests can supply an
// in-memory registry and stub adapters.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, adapters Adapters) (*Container, error) {
	if reg == nil {
		return nil, errors.New("di: repositories registry is required")
	}
	if adapters.Payments == nil {
		return nil, errors.New("di: payment provider is required")
	}

	logger := adapters.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	svc, err := buildServices(cfg, reg, adapters, logger)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases repository clients and other held resources.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(cfg config.Config, reg repositories.Registry, adapters Adapters, logger *zap.Logger) (Services, error) {
	var svc Services

	discounts, err := services.NewDiscountService(services.DiscountServiceDeps{
		Discounts: reg.Discounts(),
		Clock:     adapters.Clock,
	})
	if err != nil {
		return svc, err
	}
	svc.Discounts = discounts

	tokens, err := services.NewProductTokenService(services.ProductTokenServiceDeps{
		EncryptionKey: cfg.ProductTokens.EncryptionKey,
		TTL:           cfg.ProductTokens.TTL,
		Clock:         adapters.Clock,
	})
	if err != nil {
		return svc, err
	}
	svc.ProductTokens = tokens

	inventory, err := services.NewInventoryService(services.InventoryServiceDeps{
		Kits:   reg.Kits(),
		Logger: logger.Named("inventory"),
		Clock:  adapters.Clock,
	})
	if err != nil {
		return svc, err
	}
	svc.Inventory = inventory

	if cfg.Features.EnableNotifications {
		notifications, err := services.NewNotificationService(services.NotificationServiceDeps{
			Notifications: reg.Notifications(),
			Publisher:     adapters.Publisher,
			Logger:        logger.Named("notifications"),
			Clock:         adapters.Clock,
		})
		if err != nil {
			return svc, err
		}
		svc.Notifications = notifications
	}

	if cfg.Features.EnableInvoices && adapters.InvoiceWriter != nil {
		invoices, err := services.NewInvoiceService(services.InvoiceServiceDeps{
			Invoices: reg.Invoices(),
			Writer:   adapters.InvoiceWriter,
			Signer:   adapters.InvoiceSigner,
			Logger:   logger.Named("invoices"),
			Clock:    adapters.Clock,
		})
		if err != nil {
			return svc, err
		}
		svc.Invoices = invoices
	}

	customers, err := services.NewCustomerService(services.CustomerServiceDeps{
		Customers: reg.Customers(),
	})
	if err != nil {
		return svc, err
	}
	svc.Customers = customers

	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:        reg.Orders(),
		Inventory:     svc.Inventory,
		Notifications: svc.Notifications,
		Logger:        logger.Named("orders"),
		Clock:         adapters.Clock,
		KitSKU:        cfg.Checkout.KitSKU,
	})
	if err != nil {
		return svc, err
	}
	svc.Orders = orders

	checkout, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Orders:        reg.Orders(),
		Customers:     reg.Customers(),
		Discounts:     svc.Discounts,
		Tokens:        svc.ProductTokens,
		Payments:      adapters.Payments,
		Inventory:     svc.Inventory,
		Notifications: svc.Notifications,
		Invoices:      svc.Invoices,
		Logger:        logger.Named("checkout"),
		Clock:         adapters.Clock,
		Currency:      cfg.Checkout.Currency,
		SuccessURL:    cfg.PSP.SuccessURL,
		CancelURL:     cfg.PSP.CancelURL,
		KitSKU:        cfg.Checkout.KitSKU,
	})
	if err != nil {
		return svc, err
	}
	svc.Checkout = checkout

	registrations, err := services.NewKitRegistrationService(services.KitRegistrationServiceDeps{
		Barcodes:      reg.Barcodes(),
		Registrations: reg.KitRegistrations(),
		Orders:        reg.Orders(),
		Customers:     reg.Customers(),
		Notifications: svc.Notifications,
		Logger:        logger.Named("registrations"),
		Clock:         adapters.Clock,
	})
	if err != nil {
		return svc, err
	}
	svc.Registrations = registrations

	if health := reg.Health(); health != nil {
		system, err := services.NewSystemService(services.SystemServiceDeps{
			Health:    health,
			Build:     adapters.Build,
			Clock:     adapters.Clock,
			StartedAt: adapters.StartedAt,
		})
		if err != nil {
			return svc, err
		}
		svc.System = system
	}

	return svc, nil
}

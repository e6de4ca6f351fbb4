// Package masterdata wires the catalogue and people sub-packages behind one router.
package masterdata

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salonpos/salonpos/internal/masterdata/categories"
	"github.com/salonpos/salonpos/internal/masterdata/customers"
	"github.com/salonpos/salonpos/internal/masterdata/employees"
	"github.com/salonpos/salonpos/internal/masterdata/items"
	"github.com/salonpos/salonpos/internal/masterdata/roles"
	mdshared "github.com/salonpos/salonpos/internal/masterdata/shared"
	"github.com/salonpos/salonpos/internal/rbac"
)

// Module groups the masterdata handlers.
type Module struct {
	Categories *categories.Handler
	Roles      *roles.Handler
	Items      *items.Handler
	Employees  *employees.Handler
	Customers  *customers.Handler
}

// NewModule builds every masterdata service over pool.
func NewModule(pool *pgxpool.Pool, logger *slog.Logger, mw rbac.Middleware, phoneRegion string) *Module {
	phone := mdshared.PhoneNormalizer{Region: phoneRegion}
	return &Module{
		Categories: categories.NewHandler(logger, categories.NewService(categories.NewRepository(pool)), mw),
		Roles:      roles.NewHandler(logger, roles.NewService(roles.NewRepository(pool)), mw),
		Items:      items.NewHandler(logger, items.NewService(items.NewRepository(pool)), mw),
		Employees:  employees.NewHandler(logger, employees.NewService(employees.NewRepository(pool), phone), mw),
		Customers:  customers.NewHandler(logger, customers.NewService(customers.NewRepository(pool), phone), mw),
	}
}

// MountRoutes registers every masterdata resource under r.
func (m *Module) MountRoutes(r chi.Router) {
	r.Route("/categories", m.Categories.MountRoutes)
	r.Route("/roles", m.Roles.MountRoutes)
	r.Route("/items", m.Items.MountRoutes)
	r.Route("/employees", m.Employees.MountRoutes)
	r.Route("/customers", m.Customers.MountRoutes)
}

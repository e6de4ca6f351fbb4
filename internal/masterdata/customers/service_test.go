package customers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	mdshared "github.com/salonpos/salonpos/internal/masterdata/shared"
	"github.com/salonpos/salonpos/internal/shared"
)

type memoryRepo struct {
	rows   map[int64]Customer
	nextID int64
}

func (m *memoryRepo) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	return nil, 0, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Customer, error) {
	c, ok := m.rows[id]
	if !ok {
		return Customer{}, mdshared.NotFound("customer")
	}
	return c, nil
}

func (m *memoryRepo) Create(ctx context.Context, c Customer) (Customer, error) {
	m.nextID++
	c.ID = m.nextID
	m.rows[c.ID] = c
	return c, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, c Customer) (Customer, error) {
	c.ID = id
	m.rows[id] = c
	return c, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	delete(m.rows, id)
	return nil
}

func TestCustomerPhoneUsesConfiguredRegion(t *testing.T) {
	repo := &memoryRepo{rows: map[int64]Customer{}}
	svc := NewService(repo, mdshared.PhoneNormalizer{Region: "GB"})
	ctx := context.Background()

	c, err := svc.Create(ctx, Request{Name: "Jo", Phone: "020 7183 8750"})
	require.NoError(t, err)
	require.Equal(t, "+442071838750", c.Phone)

	_, err = svc.Create(ctx, Request{Name: "", Phone: "020 7183 8750"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Update(ctx, 77, Request{Name: "Jo"})
	require.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, c.ID))
	require.ErrorIs(t, svc.Delete(ctx, c.ID), shared.ErrNotFound)
}

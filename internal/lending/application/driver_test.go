package application

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/mortgagebank/internal/lending/domain"
)

func TestMonthlyDriver_SetPopulation(t *testing.T) {
	f := newFixture(t)
	d := NewMonthlyDriver(f.svc, "@every 1h", 10, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Equal(t, 10, d.Population())
	require.NoError(t, d.SetPopulation(250))
	assert.Equal(t, 250, d.Population())

	err := d.SetPopulation(-1)
	assert.ErrorIs(t, err, domain.ErrInvalidPopulation)
	assert.Equal(t, 250, d.Population())
}

func TestMonthlyDriver_RunOnceUsesPublishedPopulation(t *testing.T) {
	f := newFixture(t)
	f.yield.On("Refresh", mock.Anything).Return(nil)
	f.state.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.pub.On("Publish", mock.Anything, domain.RateRecalculatedEventType, "1", mock.Anything).Return(nil)

	d := NewMonthlyDriver(f.svc, "@every 1h", 10, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, d.SetPopulation(100))

	d.RunOnce(context.Background())

	state := f.bank.Snapshot()
	assert.Equal(t, 1, state.Month)
	assert.InDelta(t, 38000, state.SupplyTarget, 1e-9)
	f.pub.AssertExpectations(t)
}

func TestMonthlyDriver_StartStop(t *testing.T) {
	f := newFixture(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	bad := NewMonthlyDriver(f.svc, "not a spec", 10, log)
	assert.Error(t, bad.Start())

	d := NewMonthlyDriver(f.svc, "@every 1h", 10, log)
	require.NoError(t, d.Start())
	d.Stop()
}

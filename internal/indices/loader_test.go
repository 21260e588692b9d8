package indices_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/iwvelando/rent-renewal/internal/indices"
	"github.com/iwvelando/rent-renewal/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func twelveMonths(name string, value string) indices.Series {
	values := make([]string, 12)
	for i := range values {
		values[i] = value
	}
	return testutil.MonthlySeries(name, "01/09/2025", values...)
}

func TestLoaderTrailingYear(t *testing.T) {
	stub := &testutil.StubProvider{Data: map[string]indices.Series{
		"igpm": twelveMonths("igpm", "1"),
	}}
	loader := indices.NewLoader(stub, nil, zap.NewNop())

	acc, err := loader.TrailingYear(context.Background(), "igpm")
	require.NoError(t, err)

	expected := (math.Pow(1.01, 12) - 1) * 100
	assert.InDelta(t, expected, acc.Percent, 1e-9)
	assert.Equal(t, 12, stub.Window("igpm"))
	assert.Equal(t, 12, acc.Months)
	assert.Equal(t, "2025-09", acc.Through)
	assert.Equal(t, "IGP-M (Acumulado 12 meses)", acc.Label)
	assert.Equal(t, indices.ModeTrailingYear, acc.Mode)
}

func TestLoaderQuickValue(t *testing.T) {
	stub := &testutil.StubProvider{Data: map[string]indices.Series{
		"inpc": testutil.MonthlySeries("inpc", "01/09/2025", "0.30", "-0.21"),
	}}
	loader := indices.NewLoader(stub, nil, zap.NewNop())

	acc, err := loader.QuickValue(context.Background(), "inpc")
	require.NoError(t, err)

	assert.Equal(t, -0.21, acc.Percent)
	assert.Equal(t, 1, stub.Window("inpc"))
	assert.Equal(t, "INPC (Último mês)", acc.Label)
}

func TestLoaderFetchFailures(t *testing.T) {
	tests := []struct {
		name    string
		stub    *testutil.StubProvider
		index   string
		wantErr error
	}{
		{
			name:    "Unknown name is a mapping failure",
			stub:    &testutil.StubProvider{},
			index:   "ipca",
			wantErr: indices.ErrUnknownIndex,
		},
		{
			name:    "Empty series",
			stub:    &testutil.StubProvider{Data: map[string]indices.Series{"igpm": {Name: "igpm"}}},
			index:   "igpm",
			wantErr: indices.ErrEmptySeries,
		},
		{
			name:    "Malformed observation",
			stub:    &testutil.StubProvider{Data: map[string]indices.Series{"igpm": testutil.MonthlySeries("igpm", "01/09/2025", "1", "oops")}},
			index:   "igpm",
			wantErr: indices.ErrMalformedObservation,
		},
		{
			name:    "Observation beyond float range",
			stub:    &testutil.StubProvider{Data: map[string]indices.Series{"igpm": testutil.MonthlySeries("igpm", "01/09/2025", "0.5", "1e400")}},
			index:   "igpm",
			wantErr: indices.ErrMalformedObservation,
		},
		{
			name:    "Upstream status",
			stub:    &testutil.StubProvider{Errors: map[string]error{"igpm": &indices.UpstreamError{StatusCode: 500}}},
			index:   "igpm",
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := indices.NewLoader(tt.stub, nil, zap.NewNop())
			_, err := loader.TrailingYear(context.Background(), tt.index)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if !errors.Is(err, indices.ErrUnknownIndex) {
				var retrieval *indices.RetrievalError
				assert.True(t, errors.As(err, &retrieval), "expected RetrievalError, got %v", err)
			}
		})
	}
}

func TestLoaderLoadAllWaitsForBoth(t *testing.T) {
	gate := make(chan struct{})
	stub := &testutil.StubProvider{
		Gate: gate,
		Data: map[string]indices.Series{
			"igpm": twelveMonths("igpm", "0.5"),
			"inpc": twelveMonths("inpc", "0.25"),
		},
	}
	loader := indices.NewLoader(stub, nil, zap.NewNop())

	done := make(chan struct{})
	var set indices.Set
	var err error
	go func() {
		set, err = loader.LoadAll(context.Background(), indices.ModeTrailingYear)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("LoadAll returned before the provider answered")
	case <-time.After(20 * time.Millisecond):
	}

	close(gate)
	<-done

	require.NoError(t, err)
	require.Len(t, set, 2)

	igpm, getErr := set.Get("igpm")
	require.NoError(t, getErr)
	assert.InDelta(t, (math.Pow(1.005, 12)-1)*100, igpm.Percent, 1e-9)

	inpc, getErr := set.Get("inpc")
	require.NoError(t, getErr)
	assert.InDelta(t, (math.Pow(1.0025, 12)-1)*100, inpc.Percent, 1e-9)

	_, getErr = set.Get("ipca")
	assert.ErrorIs(t, getErr, indices.ErrUnknownIndex)
}

func TestLoaderLoadAllReportsFailingIndex(t *testing.T) {
	stub := &testutil.StubProvider{
		Data:   map[string]indices.Series{"igpm": twelveMonths("igpm", "0.5")},
		Errors: map[string]error{"inpc": errors.New("connection reset")},
	}
	loader := indices.NewLoader(stub, nil, zap.NewNop())

	set, err := loader.LoadAll(context.Background(), indices.ModeTrailingYear, "igpm", "inpc")
	require.Error(t, err)
	assert.Nil(t, set)

	var retrieval *indices.RetrievalError
	require.True(t, errors.As(err, &retrieval))
	assert.Equal(t, "inpc", retrieval.Index)
}

func TestLoaderLoadAllHonoursTimeout(t *testing.T) {
	stub := &testutil.StubProvider{
		Gate: make(chan struct{}),
		Data: map[string]indices.Series{"igpm": twelveMonths("igpm", "0.5")},
	}
	loader := indices.NewLoader(stub, nil, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := loader.LoadAll(ctx, indices.ModeLatest, "igpm")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCatalog(t *testing.T) {
	catalog := indices.DefaultCatalog()
	assert.Equal(t, []string{"igpm", "inpc"}, catalog.Names())

	idx, err := catalog.Lookup(" INPC ")
	require.NoError(t, err)
	assert.Equal(t, "188", idx.SeriesCode)

	_, err = catalog.Lookup("custom")
	assert.ErrorIs(t, err, indices.ErrUnknownIndex)

	extended := catalog.WithSeriesCodes(map[string]string{"ipca": "433"})
	idx, err = extended.Lookup("ipca")
	require.NoError(t, err)
	assert.Equal(t, "IPCA", idx.DisplayName)
	assert.Len(t, catalog.Names(), 2, "WithSeriesCodes must not modify the receiver")
}

func TestParseMode(t *testing.T) {
	mode, err := indices.ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, indices.ModeTrailingYear, mode)

	mode, err = indices.ParseMode("LATEST")
	require.NoError(t, err)
	assert.Equal(t, indices.ModeLatest, mode)
	assert.Equal(t, 1, mode.Window())

	_, err = indices.ParseMode("custom")
	assert.Error(t, err)
}

func TestCustom(t *testing.T) {
	acc := indices.Custom(3.99)
	assert.Equal(t, indices.CustomIndexName, acc.Name)
	assert.Equal(t, indices.ModeCustom, acc.Mode)
	assert.Equal(t, 3.99, acc.Percent)
}

package chat

import (
	"context"
	stderrors "errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanankenbruck/qsar-chat/internal/catalog"
	"github.com/seanankenbruck/qsar-chat/internal/errors"
	"github.com/seanankenbruck/qsar-chat/internal/history"
	"github.com/seanankenbruck/qsar-chat/internal/predictor"
	"github.com/seanankenbruck/qsar-chat/internal/report"
)

var fixedNow = time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC)

func newTestProcessor(t *testing.T, opts ...Option) (*Processor, *history.MemoryRecorder) {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)

	sim := predictor.NewSimulatedPredictor(rand.NewSource(1))
	service := predictor.NewService(c, predictor.NewDefault(c, sim),
		predictor.WithDelay(predictor.DelayConfig{}),
		predictor.WithClock(func() time.Time { return fixedNow }),
	)

	rec := history.NewMemoryRecorder(10)
	opts = append([]Option{
		WithHistory("memory", rec),
		WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	return NewProcessor(c, service, opts...), rec
}

type failingLookup struct{ err error }

func (f failingLookup) Lookup(context.Context, string, []string) ([]predictor.Result, error) {
	return nil, f.err
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, history.Entry) error {
	return stderrors.New("db down")
}

func (failingRecorder) Recent(context.Context, int) ([]history.Entry, error) {
	return nil, stderrors.New("db down")
}

func TestProcessMessage_Success(t *testing.T) {
	p, rec := newTestProcessor(t)

	resp, err := p.ProcessMessage(context.Background(), "¿El benceno es irritante dérmico según QSAR?")
	require.NoError(t, err)

	assert.Equal(t, ResponseSuccess, resp.Type)
	require.NotNil(t, resp.Query)
	assert.Equal(t, "benceno", resp.Query.Substance)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "skin_irritation", resp.Results[0].EndpointCode)
	assert.Equal(t, "eye_irritation", resp.Results[1].EndpointCode)
	assert.Equal(t, predictor.SourceTable, resp.Results[0].Prediction.Source)
	assert.Contains(t, resp.ResponseES, "**benceno**")
	assert.Contains(t, resp.ResponseES, "Se evaluaron 2 endpoints")
	assert.Equal(t, fixedNow, resp.Timestamp)
	assert.Empty(t, resp.Suggestions)

	entries, err := rec.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Valid)
	assert.Equal(t, 2, entries[0].ResultCount)
	assert.Equal(t, []string{"skin_irritation", "eye_irritation"}, entries[0].Endpoints)
}

func TestProcessMessage_UnknownSubstanceIsSimulated(t *testing.T) {
	p, _ := newTestProcessor(t)

	resp, err := p.ProcessMessage(context.Background(), "Toxicidad aguda oral del compuesto xilenol")
	require.NoError(t, err)

	assert.Equal(t, ResponseSuccess, resp.Type)
	assert.Equal(t, "xilenol", resp.Query.Substance)
	require.NotEmpty(t, resp.Results)
	for _, r := range resp.Results {
		assert.Equal(t, predictor.SourceSimulated, r.Prediction.Source)
		assert.Equal(t, "xilenol", r.Substance)
	}
}

func TestProcessMessage_ValidationError(t *testing.T) {
	p, rec := newTestProcessor(t)

	resp, err := p.ProcessMessage(context.Background(), "dame la predicción según qsar")
	require.NoError(t, err)

	assert.Equal(t, ResponseValidationError, resp.Type)
	assert.Nil(t, resp.Query)
	assert.Empty(t, resp.Results)
	assert.NotEmpty(t, resp.Suggestions)
	assert.Len(t, resp.Examples, 3)

	entries, _ := rec.Recent(context.Background(), 10)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Valid)
}

func TestProcessMessage_InvalidInput(t *testing.T) {
	p, _ := newTestProcessor(t)

	tests := []struct {
		name    string
		message string
		code    errors.ErrorCode
	}{
		{"empty", "", errors.ErrCodeMissingRequired},
		{"whitespace", "   \n", errors.ErrCodeMissingRequired},
		{"too long", strings.Repeat("benceno ", MaxMessageLength), errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ProcessMessage(context.Background(), tt.message)
			var enhancedErr *errors.EnhancedError
			require.ErrorAs(t, err, &enhancedErr)
			assert.Equal(t, tt.code, enhancedErr.Code)
		})
	}
}

func TestProcessMessage_LookupErrors(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	t.Run("cancelled", func(t *testing.T) {
		p := NewProcessor(c, failingLookup{err: context.Canceled})
		_, err := p.ProcessMessage(context.Background(), "toxicidad aguda del benceno")
		var enhancedErr *errors.EnhancedError
		require.ErrorAs(t, err, &enhancedErr)
		assert.Equal(t, errors.ErrCodeRequestCancelled, enhancedErr.Code)
	})

	t.Run("predictor failure", func(t *testing.T) {
		p := NewProcessor(c, failingLookup{err: stderrors.New("breaker open")})
		_, err := p.ProcessMessage(context.Background(), "toxicidad aguda del benceno")
		var enhancedErr *errors.EnhancedError
		require.ErrorAs(t, err, &enhancedErr)
		assert.Equal(t, errors.ErrCodePredictionFailed, enhancedErr.Code)
	})
}

func TestProcessMessage_HistoryFailureIsIgnored(t *testing.T) {
	p, _ := newTestProcessor(t, WithHistory("postgres", failingRecorder{}))

	resp, err := p.ProcessMessage(context.Background(), "¿El benceno es irritante dérmico según QSAR?")
	require.NoError(t, err)
	assert.Equal(t, ResponseSuccess, resp.Type)

	_, err = p.History(context.Background(), 5)
	var enhancedErr *errors.EnhancedError
	require.ErrorAs(t, err, &enhancedErr)
	assert.Equal(t, errors.ErrCodeHistoryUnavailable, enhancedErr.Code)
}

func TestCatalogInfo(t *testing.T) {
	p, _ := newTestProcessor(t)

	info := p.CatalogInfo()
	assert.Len(t, info.Examples, 8)
	assert.Contains(t, info.AvailableSubstances, "benceno")
	assert.Equal(t, 8, info.SimulatorStats.KnownSubstances)
	assert.Equal(t, 8, info.SimulatorStats.SupportedEndpoints)
	assert.Equal(t, "1.0.0-MVP", info.SimulatorStats.Version)
	assert.Len(t, p.Endpoints(), 8)

	for i := 0; i < 3; i++ {
		again := p.CatalogInfo()
		assert.Equal(t, info.SimulatorStats, again.SimulatorStats)
		assert.Equal(t, info.AvailableSubstances, again.AvailableSubstances)
		assert.Equal(t, info.Examples, again.Examples)
	}
}

func TestReports(t *testing.T) {
	signer := report.NewSigner("test-secret-for-report-downloads", time.Minute)
	p, _ := newTestProcessor(t, WithReports(report.NewGenerator(report.NewMemoryStore(time.Hour), signer)))
	ctx := context.Background()

	resp, err := p.ProcessMessage(ctx, "¿El benceno es irritante dérmico según QSAR?")
	require.NoError(t, err)

	t.Run("incomplete request", func(t *testing.T) {
		_, err := p.GenerateReport(ctx, report.Request{Results: resp.Results})
		var enhancedErr *errors.EnhancedError
		require.ErrorAs(t, err, &enhancedErr)
		assert.Equal(t, errors.ErrCodeMissingRequired, enhancedErr.Code)
	})

	t.Run("generate and download", func(t *testing.T) {
		generated, err := p.GenerateReport(ctx, report.Request{Substance: "benceno", Results: resp.Results})
		require.NoError(t, err)
		assert.True(t, generated.Success)

		_, err = p.DownloadReport(ctx, generated.ReportID, "")
		var enhancedErr *errors.EnhancedError
		require.ErrorAs(t, err, &enhancedErr)
		assert.Equal(t, errors.ErrCodeInvalidReportToken, enhancedErr.Code)

		token, err := signer.Sign(generated.ReportID)
		require.NoError(t, err)
		d, err := p.DownloadReport(ctx, generated.ReportID, token)
		require.NoError(t, err)
		assert.Equal(t, "reporte_qsar_benceno.txt", d.Filename)
		assert.Contains(t, d.Content, "Sustancia analizada: benceno")
	})

	t.Run("unknown report", func(t *testing.T) {
		token, err := signer.Sign("missing")
		require.NoError(t, err)
		_, err = p.DownloadReport(ctx, "missing", token)
		var enhancedErr *errors.EnhancedError
		require.ErrorAs(t, err, &enhancedErr)
		assert.Equal(t, errors.ErrCodeReportNotFound, enhancedErr.Code)
	})
}

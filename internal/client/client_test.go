package client

import (
	"bytes"
	"clinicadmin/internal/adapters/collections"
	"clinicadmin/internal/adapters/exports"
	"clinicadmin/internal/config"
	"clinicadmin/internal/core"
	blobmemory "clinicadmin/internal/infra/blob/memory"
	"clinicadmin/pkg/domain"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServerClient(t *testing.T) (*Client, *exports.Worker) {
	t.Helper()
	svc := core.NewInMemoryService(nil)
	worker := exports.NewWorker(svc, blobmemory.New())
	worker.Start()
	t.Cleanup(func() { _ = worker.Stop(context.Background()) })
	srv := httptest.NewServer(collections.NewRouter(svc, collections.WithExports(worker)))
	t.Cleanup(srv.Close)

	c, err := New(config.ClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c, worker
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080", "ftp://example.com"} {
		_, err := New(config.ClientConfig{BaseURL: raw})
		assert.Error(t, err, raw)
	}
	c, err := New(config.ClientConfig{BaseURL: "http://localhost:8080/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api/v1", c.BaseURL())
}

func TestCollectionRoundTrip(t *testing.T) {
	c, _ := newServerClient(t)
	ctx := context.Background()
	groups := For[domain.TaxGroup](c, domain.EntityTaxGroup)
	taxes := For[domain.Tax](c, domain.EntityTax)

	gst, err := groups.Create(ctx, domain.TaxGroup{Name: "GST"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), gst.ID)
	require.NotNil(t, gst.CreatedAt)

	tax, err := taxes.Create(ctx, domain.Tax{Name: "CGST", GroupID: gst.ID, Percentage: 6})
	require.NoError(t, err)

	tax.Percentage = 9
	updated, err := taxes.Update(ctx, tax.ID, tax)
	require.NoError(t, err)
	assert.InDelta(t, 9.0, updated.Percentage, 0.0001)

	got, err := taxes.Get(ctx, tax.ID)
	require.NoError(t, err)
	assert.Equal(t, "CGST", got.Name)

	list, err := taxes.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, taxes.Delete(ctx, tax.ID))
	list, err = taxes.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAPIErrors(t *testing.T) {
	c, _ := newServerClient(t)
	ctx := context.Background()
	forms := For[domain.Form](c, domain.EntityForm)

	_, err := forms.Create(ctx, domain.Form{Name: " "})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Len(t, apiErr.Fields, 1)
	assert.Equal(t, "name", apiErr.Fields[0].Field)

	err = forms.Delete(ctx, 99)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = forms.Create(ctx, domain.Form{Name: "Tablet"})
	require.NoError(t, err)
	_, err = forms.Create(ctx, domain.Form{Name: "tablet"})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.NotEmpty(t, apiErr.Violations)
}

func TestTransportErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c, err := New(config.ClientConfig{BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)

	_, err = For[domain.Form](c, domain.EntityForm).List(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.Contains(t, err.Error(), "GET /forms")
}

func TestExportFlow(t *testing.T) {
	c, worker := newServerClient(t)
	ctx := context.Background()
	_, err := For[domain.Form](c, domain.EntityForm).Create(ctx, domain.Form{Name: "Syrup"})
	require.NoError(t, err)

	rec, err := c.RequestExport(ctx, domain.EntityForm, exports.FormatJSON)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		r, ok := worker.Get(rec.ID)
		return ok && r.Status == exports.StatusSucceeded
	}, 2*time.Second, 10*time.Millisecond)

	status, err := c.Export(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, exports.StatusSucceeded, status.Status)

	var buf bytes.Buffer
	n, err := c.DownloadExport(ctx, rec.ID, &buf)
	require.NoError(t, err)
	assert.Positive(t, n)
	assert.Contains(t, buf.String(), "Syrup")

	_, err = c.DownloadExport(ctx, "missing", &buf)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

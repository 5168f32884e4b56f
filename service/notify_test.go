package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/MohitSaini10/dan-aliph/models"
	"github.com/MohitSaini10/dan-aliph/service"
	"github.com/MohitSaini10/dan-aliph/service/servicetest"
	"github.com/MohitSaini10/dan-aliph/store/storetest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatcher(t *testing.T) (*service.Dispatcher, *servicetest.Notifier, *storetest.Memory, *service.Metrics) {
	t.Helper()
	n := &servicetest.Notifier{}
	mem := storetest.NewMemory()
	m := service.NewMetrics(prometheus.NewRegistry())
	return service.NewDispatcher(n, mem, m, slog.New(slog.NewTextHandler(io.Discard, nil))), n, mem, m
}

func TestDispatch(t *testing.T) {
	d, n, mem, m := newDispatcher(t)

	d.Dispatch(models.EventNewsletter, "",
		service.Message{To: "a@example.com", Subject: "hi"},
		service.Message{To: "b@example.com", Subject: "hi"},
	)
	d.Dispatch(models.EventNewsletter, "")
	d.Wait()

	assert.Len(t, n.Sent(), 2)
	assert.Len(t, mem.EmailLogs(), 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Notifications.WithLabelValues(models.EventNewsletter, "sent")))
}

func TestDispatchFuncBuildErrorAndPanic(t *testing.T) {
	d, n, _, _ := newDispatcher(t)

	d.DispatchFunc(models.EventBookPublished, "x", func(context.Context) ([]service.Message, error) {
		return nil, errors.New("lookup failed")
	})
	d.DispatchFunc(models.EventBookPublished, "y", func(context.Context) ([]service.Message, error) {
		panic("boom")
	})
	d.Wait()
	assert.Empty(t, n.Sent())
}

func TestSendReturnsFailure(t *testing.T) {
	d, n, mem, m := newDispatcher(t)
	n.Fail = true

	err := d.Send(context.Background(), models.EventContactReply, "c1", service.Message{To: "v@example.com"})
	require.ErrorIs(t, err, servicetest.ErrSendFailed)

	logs := mem.EmailLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, servicetest.ErrSendFailed.Error(), logs[0].Error)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues(models.EventContactReply, "failed")))

	recent, err := d.EmailLogs(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

package service_test

import (
	"context"
	"testing"

	"github.com/MohitSaini10/dan-aliph/apperr"
	"github.com/MohitSaini10/dan-aliph/models"
	"github.com/MohitSaini10/dan-aliph/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	outcome, err := h.subs.Subscribe(ctx, " Fan@Example.com ", "")
	require.NoError(t, err)
	assert.Equal(t, service.Subscribed, outcome)

	sub, err := h.mem.SubscriberByEmail(ctx, "fan@example.com")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "footer", sub.Source)
	assert.True(t, sub.IsActive)
	assert.Len(t, sub.UnsubscribeToken, 64)

	outcome, err = h.subs.Subscribe(ctx, "fan@example.com", "popup")
	require.NoError(t, err)
	assert.Equal(t, service.AlreadySubscribed, outcome)

	require.NoError(t, h.subs.Unsubscribe(ctx, sub.UnsubscribeToken))
	outcome, err = h.subs.Subscribe(ctx, "fan@example.com", "popup")
	require.NoError(t, err)
	assert.Equal(t, service.Resubscribed, outcome)

	again, err := h.mem.SubscriberByEmail(ctx, "fan@example.com")
	require.NoError(t, err)
	assert.True(t, again.IsActive)
	assert.Equal(t, sub.UnsubscribeToken, again.UnsubscribeToken)

	_, err = h.subs.Subscribe(ctx, "nope", "")
	requireCode(t, err, apperr.CodeValidation)
}

func TestUnsubscribe(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	err := h.subs.Unsubscribe(ctx, "  ")
	requireCode(t, err, apperr.CodeValidation)

	err = h.subs.Unsubscribe(ctx, "deadbeef")
	requireCode(t, err, apperr.CodeNotFound)
}

func TestSendNewsletter(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	for _, e := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := h.subs.Subscribe(ctx, e, "footer")
		require.NoError(t, err)
	}
	c, err := h.mem.SubscriberByEmail(ctx, "c@example.com")
	require.NoError(t, err)
	require.NoError(t, h.subs.Unsubscribe(ctx, c.UnsubscribeToken))

	_, err = h.subs.SendNewsletter(ctx, "", "body")
	requireCode(t, err, apperr.CodeValidation)

	n, err := h.subs.SendNewsletter(ctx, "March picks", "<b>Three new books</b>")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	h.dispatch.Wait()
	sent := h.mail.Sent()
	require.Len(t, sent, 2)
	for _, m := range sent {
		assert.Equal(t, "March picks", m.Subject)
		assert.NotContains(t, m.HTML, "<b>Three", "content is escaped")
	}
	assert.Empty(t, h.mail.To("c@example.com"))

	all, err := h.subs.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	for _, l := range h.mem.EmailLogs() {
		assert.Equal(t, models.EventNewsletter, l.Event)
	}
}

package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	name string
	err  error
	sent []Message
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Send(_ context.Context, msg Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		r := NewRegistry()
		n := &fakeNotifier{name: "email"}

		require.NoError(t, r.Register(n))

		got, err := r.Get("email")
		require.NoError(t, err)
		assert.Equal(t, n, got)

		_, err = r.Get("slack")
		assert.Error(t, err)
	})

	t.Run("duplicate registration rejected", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(&fakeNotifier{name: "email"}))
		assert.Error(t, r.Register(&fakeNotifier{name: "email"}))
	})

	t.Run("send all collects per-notifier errors", func(t *testing.T) {
		r := NewRegistry()
		good := &fakeNotifier{name: "webhook"}
		bad := &fakeNotifier{name: "email", err: errors.New("smtp down")}
		require.NoError(t, r.Register(good))
		require.NoError(t, r.Register(bad))

		msg := Message{Subject: "s", Markdown: "body"}
		errs := r.SendAll(context.Background(), msg)

		require.Len(t, errs, 1)
		assert.Error(t, errs["email"])
		require.Len(t, good.sent, 1)
		assert.Equal(t, "body", good.sent[0].Markdown)
	})
}

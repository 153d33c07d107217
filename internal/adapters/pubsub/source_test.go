package pubsub

import (
	"context"
	"testing"

	gpubsub "cloud.google.com/go/pubsub"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/example/quoteflow/internal/core/reorder"
)

// fakeReceiver delivers a fixed set of messages, then returns.
type fakeReceiver struct {
	messages []*gpubsub.Message
	err      error
}

func (f *fakeReceiver) Receive(ctx context.Context, fn func(context.Context, *gpubsub.Message)) error {
	for _, m := range f.messages {
		fn(ctx, m)
	}
	return f.err
}

func TestStockEventSource_DecodesEvents(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	recv := &fakeReceiver{messages: []*gpubsub.Message{
		{ID: "1", Data: []byte(`{"type":"NEEDS_REORDER","productId":"P-1","supplierId":"S1","quantityToOrder":6,"currentPrice":"1.25","enableAutoQuotation":false}`)},
		{ID: "2", Data: []byte(`not json`)},
		{ID: "3", Data: []byte(`{"type":"NEEDS_REORDER","productId":"P-2","supplierId":"S1"}`)},
	}}
	src := NewStockEventSource(recv, logger)

	var got []reorder.StockEvent
	err := src.Subscribe(context.Background(), func(ctx context.Context, ev reorder.StockEvent) {
		got = append(got, ev)
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].ProductID != "P-1" || got[0].QuantityToOrder != 6 || got[0].CurrentPrice.String() != "1.25" {
		t.Errorf("first event = %+v", got[0])
	}
	if got[0].EnableAutoQuotation == nil || *got[0].EnableAutoQuotation {
		t.Error("enableAutoQuotation=false was not decoded")
	}
	if got[1].EnableAutoQuotation != nil {
		t.Error("missing enableAutoQuotation should decode as nil")
	}
	if len(hook.Entries) != 1 || hook.LastEntry().Data["message_id"] != "2" {
		t.Errorf("expected one warning for message 2, got %d entries", len(hook.Entries))
	}
}

func TestStockEventSource_CancellationIsNotAnError(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	src := NewStockEventSource(&fakeReceiver{err: context.Canceled}, logger)

	if err := src.Subscribe(context.Background(), func(context.Context, reorder.StockEvent) {}); err != nil {
		t.Errorf("Subscribe = %v, want nil on cancellation", err)
	}
}

func TestNewClient_RequiresProject(t *testing.T) {
	if _, err := NewClient(context.Background(), "", ""); err == nil {
		t.Error("expected error without a project id")
	}
}

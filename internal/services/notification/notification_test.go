package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vaultledger/internal/config"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func TestDispatcherDeliversAsynchronously(t *testing.T) {
	sender := new(MockSender)
	msg := Message{AccountID: 7, Email: "a@example.com", Template: "tpl-key"}
	sender.On("Send", mock.Anything, msg).Return(nil).Once()

	d := NewDispatcher(sender, time.Second, zap.NewNop(), nil)
	d.Notify(context.Background(), msg)
	d.Wait()

	sender.AssertExpectations(t)
}

func TestDispatcherSwallowsFailures(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()

	d := NewDispatcher(sender, time.Second, zap.NewNop(), nil)
	assert.NotPanics(t, func() {
		d.Notify(context.Background(), Message{AccountID: 1, Template: "tpl"})
		d.Wait()
	})
	sender.AssertExpectations(t)
}

func TestDispatcherSkipsMessagesWithoutTemplate(t *testing.T) {
	sender := new(MockSender)

	d := NewDispatcher(sender, time.Second, zap.NewNop(), nil)
	d.Notify(context.Background(), Message{AccountID: 1})
	d.Wait()

	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestDispatcherOutlivesCancelledRequest(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		assert.NoError(t, ctx.Err())
	}).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDispatcher(sender, time.Second, zap.NewNop(), nil)
	d.Notify(ctx, Message{AccountID: 1, Template: "tpl"})
	d.Wait()
	sender.AssertExpectations(t)
}

func TestMailSenderPostsTemplatePayload(t *testing.T) {
	var got templateMail
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/email/template", r.URL.Path)
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s, err := NewMailSender(config.MailConfig{
		APIURL: srv.URL, APIKey: "Zoho-enczapikey abc", FromEmail: "noreply@example.com", FromName: "Wallet Team",
	})
	require.NoError(t, err)

	err = s.Send(context.Background(), Message{
		AccountID: 3, Email: "user@example.com", Name: "User", Template: "tpl-otp",
		Variables: map[string]string{"otp": "123456"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Zoho-enczapikey abc", auth)
	assert.Equal(t, "tpl-otp", got.TemplateKey)
	assert.Equal(t, "noreply@example.com", got.From.Address)
	require.Len(t, got.To, 1)
	assert.Equal(t, "user@example.com", got.To[0].EmailAddress.Address)
	assert.Equal(t, "123456", got.MergeInfo["otp"])
}

func TestMailSenderReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s, err := NewMailSender(config.MailConfig{APIURL: srv.URL, APIKey: "k", FromEmail: "f@example.com"})
	require.NoError(t, err)

	err = s.Send(context.Background(), Message{Email: "u@example.com", Template: "t"})
	assert.Error(t, err)
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	msgs chan kafka.Message
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) Close() error { return nil }

func TestKafkaRoundTripThroughConsumer(t *testing.T) {
	w := &fakeWriter{}
	msg := Message{AccountID: 9, Email: "k@example.com", Template: "tpl", Variables: map[string]string{"amount": "1"}}
	require.NoError(t, NewKafkaSender(w).Send(context.Background(), msg))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "9", string(w.msgs[0].Key))

	reader := &fakeReader{msgs: make(chan kafka.Message, 2)}
	reader.msgs <- kafka.Message{Value: []byte("not json")}
	reader.msgs <- w.msgs[0]

	ctx, cancel := context.WithCancel(context.Background())
	sender := new(MockSender)
	sender.On("Send", mock.Anything, msg).Return(nil).Run(func(mock.Arguments) { cancel() }).Once()

	c := &Consumer{Log: zap.NewNop(), Reader: reader, Sender: sender}
	err := c.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	sender.AssertExpectations(t)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1,234.50", FormatUSD(decimal.RequireFromString("1234.5")))
	assert.Equal(t, "0.00012000", FormatCrypto(decimal.RequireFromString("0.00012"), 8))

	v := Vars{}.Stamp(time.Date(2026, 2, 3, 14, 5, 6, 0, time.UTC))
	assert.Equal(t, "02/03/2026", v["date"])
	assert.Equal(t, "2:05:06 PM", v["time"])
	assert.Equal(t, "2026", v["year"])
}

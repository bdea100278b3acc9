package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/alicebob/miniredis/v2"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/mattdomit/dotted-sub000/internal/config"
)

func sampleEvent(zoneID string) PhaseChanged {
	return PhaseChanged{
		CycleID:       "c-1",
		ZoneID:        zoneID,
		Phase:         "BIDDING",
		PreviousPhase: "VOTING",
		OccurredAt:    time.Date(2026, 10, 14, 11, 0, 0, 0, time.UTC),
	}
}

type recorder struct {
	mu     sync.Mutex
	events []PhaseChanged
	err    error
	block  chan struct{}
}

func (r *recorder) Publish(_ context.Context, evt PhaseChanged) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestDispatcher_DeliversToEverySink(t *testing.T) {
	d := NewDispatcher(nil, 8, time.Second)
	ok := &recorder{}
	bad := &recorder{err: errors.New("sink down")}
	d.Add("ok", ok)
	d.Add("bad", bad)

	require.NoError(t, d.Publish(context.Background(), sampleEvent("z-1")))
	d.Close()

	assert.Equal(t, 1, ok.count())
	assert.Equal(t, 1, bad.count())
	assert.Equal(t, TypePhaseChanged, ok.events[0].Type)
	stats := d.Stats()
	assert.Equal(t, uint64(1), stats.Delivered)
	assert.Equal(t, uint64(1), stats.Failed)
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	d := NewDispatcher(nil, 1, time.Second)
	slow := &recorder{block: make(chan struct{})}
	d.Add("slow", slow)

	// the worker takes the first event and blocks in the sink; the second
	// fills the queue; the third has nowhere to go
	require.NoError(t, d.Publish(context.Background(), sampleEvent("z-1")))
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, d.Publish(context.Background(), sampleEvent("z-1")))
	err := d.Publish(context.Background(), sampleEvent("z-1"))
	assert.ErrorIs(t, err, ErrQueueFull)

	close(slow.block)
	d.Close()
	assert.Equal(t, 2, slow.count())
	assert.Equal(t, uint64(1), d.Stats().Dropped)
	assert.ErrorIs(t, d.Publish(context.Background(), sampleEvent("z-1")), ErrClosed)
}

func TestDispatcher_DisabledSkipsDelivery(t *testing.T) {
	d := NewDispatcher(nil, 4, time.Second)
	d.Enabled = func(context.Context) bool { return false }
	rec := &recorder{}
	d.Add("rec", rec)

	require.NoError(t, d.Publish(context.Background(), sampleEvent("z-1")))
	d.Close()
	assert.Zero(t, rec.count())
}

func TestDispatcher_RecoversFromPanickingSink(t *testing.T) {
	d := NewDispatcher(nil, 4, time.Second)
	d.Add("panics", PublisherFunc(func(context.Context, PhaseChanged) error { panic("boom") }))
	rec := &recorder{}
	d.Add("rec", rec)

	require.NoError(t, d.Publish(context.Background(), sampleEvent("z-1")))
	d.Close()
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, uint64(1), d.Stats().Failed)
}

func TestHub_FiltersByZone(t *testing.T) {
	h := NewHub(nil, 4)
	all, unsubAll := h.Subscribe("")
	defer unsubAll()
	z1, unsubZ1 := h.Subscribe("z-1")

	require.NoError(t, h.Publish(context.Background(), sampleEvent("z-2")))
	require.NoError(t, h.Publish(context.Background(), sampleEvent("z-1")))

	assert.Len(t, all, 2)
	require.Len(t, z1, 1)
	var evt PhaseChanged
	require.NoError(t, json.Unmarshal(<-z1, &evt))
	assert.Equal(t, "z-1", evt.ZoneID)

	unsubZ1()
	assert.Equal(t, 1, h.Clients())
}

func TestHub_DropsForSlowSubscriber(t *testing.T) {
	h := NewHub(nil, 1)
	_, unsub := h.Subscribe("")
	defer unsub()
	require.NoError(t, h.Publish(context.Background(), sampleEvent("z-1")))
	require.NoError(t, h.Publish(context.Background(), sampleEvent("z-1")))
	assert.Equal(t, uint64(1), h.Dropped())
}

func TestHub_ServeWS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHub(nil, 4)
	r := gin.New()
	h.Register(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?zone_id=z-1"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return h.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, h.Publish(ctx, sampleEvent("z-2")))
	require.NoError(t, h.Publish(ctx, sampleEvent("z-1")))

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var evt PhaseChanged
	require.NoError(t, json.Unmarshal(data, &evt))
	assert.Equal(t, "z-1", evt.ZoneID)
	assert.Equal(t, "BIDDING", evt.Phase)
}

func TestRedisPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, "dotted:cycle-phase")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub := &RedisPublisher{Client: client, Channel: "dotted:cycle-phase"}
	require.NoError(t, pub.Publish(ctx, sampleEvent("z-1")))

	select {
	case msg := <-sub.Channel():
		assert.Contains(t, msg.Payload, `"cycle_id":"c-1"`)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestKafkaPublisher(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var evt PhaseChanged
		if err := json.Unmarshal(val, &evt); err != nil {
			return err
		}
		if evt.ZoneID != "z-1" {
			return errors.New("wrong zone")
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	pub := NewKafkaPublisherWithProducer(producer, "cycle-phase-changes")
	require.NoError(t, pub.Publish(context.Background(), sampleEvent("z-1")))
	assert.ErrorIs(t, pub.Publish(context.Background(), sampleEvent("z-1")), sarama.ErrOutOfBrokers)
	require.NoError(t, pub.Close())
}

func TestWebhookPublisher(t *testing.T) {
	var (
		gotSig  string
		gotBody []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	pub := NewWebhookPublisher(config.WebhookConfig{URL: srv.URL, Secret: "s3cret", Timeout: time.Second})
	require.NoError(t, pub.Publish(context.Background(), sampleEvent("z-1")))
	assert.Equal(t, Sign("s3cret", gotBody), gotSig)
	assert.Contains(t, string(gotBody), `"phase":"BIDDING"`)
}

func TestWebhookPublisher_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	pub := NewWebhookPublisher(config.WebhookConfig{URL: srv.URL, Timeout: time.Second})
	err := pub.Publish(context.Background(), sampleEvent("z-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeMQTT struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
	err      error
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.topic, f.qos, f.retained = topic, qos, retained
	f.payload, _ = payload.([]byte)
	return newFakeToken(f.err)
}

func (f *fakeMQTT) Disconnect(uint) {}

func TestMQTTPublisher(t *testing.T) {
	client := &fakeMQTT{}
	pub := &MQTTPublisher{client: client, topicPrefix: "dotted/zones/", qos: 1}

	require.NoError(t, pub.Publish(context.Background(), sampleEvent("z-1")))
	assert.Equal(t, "dotted/zones/z-1/phase", client.topic)
	assert.Equal(t, byte(1), client.qos)
	assert.True(t, client.retained)
	assert.Contains(t, string(client.payload), `"zone_id":"z-1"`)

	client.err = errors.New("not connected")
	assert.Error(t, pub.Publish(context.Background(), sampleEvent("z-1")))
	require.NoError(t, pub.Close())
}

func TestSetup_OnlyWebsocket(t *testing.T) {
	d, hub := Setup(config.BroadcastConfig{WebSocket: config.WebSocketConfig{Enabled: true}}, nil, nil)
	defer d.Close()
	require.NotNil(t, hub)
	assert.Len(t, d.sinks, 1)

	d2, hub2 := Setup(config.BroadcastConfig{Redis: config.RedisSinkConfig{Enabled: true}}, nil, nil)
	defer d2.Close()
	assert.Nil(t, hub2)
	assert.Empty(t, d2.sinks)
}

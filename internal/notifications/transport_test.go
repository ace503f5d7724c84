package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"
)

type fakeRedis struct {
	published map[string][]string
	hashes    map[string]map[string]any
	closed    bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{published: map[string][]string{}, hashes: map[string]map[string]any{}}
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	f.published[channel] = append(f.published[channel], string(message.([]byte)))
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(1)
	return cmd
}

func (f *fakeRedis) HSet(ctx context.Context, key string, values ...any) *redis.IntCmd {
	hash := f.hashes[key]
	if hash == nil {
		hash = map[string]any{}
		f.hashes[key] = hash
	}
	for i := 0; i+1 < len(values); i += 2 {
		hash[values[i].(string)] = values[i+1]
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(values) / 2))
	return cmd
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestRedisPublisherMirrorsTaskState(t *testing.T) {
	client := newFakeRedis()
	pub := newRedisPublisher(client, "stratos:events")
	ctx := context.Background()

	if err := pub.Publish(ctx, Progress("t1", "transcribe", 0.2, "Transcribing")); err != nil {
		t.Fatalf("publish progress: %v", err)
	}
	if err := pub.Publish(ctx, Complete("t1", "transcribe", "/out/t1/clip-transcription.srt")); err != nil {
		t.Fatalf("publish complete: %v", err)
	}

	messages := client.published["stratos:events"]
	if len(messages) != 2 {
		t.Fatalf("expected 2 channel messages, got %d", len(messages))
	}
	var last Event
	if err := json.Unmarshal([]byte(messages[1]), &last); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if last.Type != EventComplete || last.ResultPath != "/out/t1/clip-transcription.srt" {
		t.Fatalf("unexpected event %+v", last)
	}

	hash := client.hashes["stratos:events:task:t1"]
	if hash["status"] != "completed" || hash["result_path"] != "/out/t1/clip-transcription.srt" {
		t.Fatalf("unexpected hash %v", hash)
	}
	if hash["message"] != "Transcribing" {
		t.Fatalf("expected earlier progress message to persist, got %v", hash["message"])
	}

	if err := pub.Close(); err != nil || !client.closed {
		t.Fatalf("expected close to reach client, err=%v", err)
	}
}

type fakeChannel struct {
	exchange string
	keys     []string
	msgs     []amqp.Publishing
	err      error
}

func (f *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.exchange = exchange
	f.keys = append(f.keys, key)
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func TestAMQPPublisherRoutesByEventType(t *testing.T) {
	ch := &fakeChannel{}
	pub := newAMQPPublisher(ch, "stratos.events")

	if err := pub.Publish(context.Background(), Failed("t9", "subtitle", "subtitle application failed")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if ch.exchange != "stratos.events" || len(ch.keys) != 1 || ch.keys[0] != "failed" {
		t.Fatalf("unexpected routing exchange=%q keys=%v", ch.exchange, ch.keys)
	}
	msg := ch.msgs[0]
	if msg.ContentType != "application/json" || msg.Type != "failed" {
		t.Fatalf("unexpected message headers %+v", msg)
	}
	var decoded Event
	if err := json.Unmarshal(msg.Body, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.TaskID != "t9" || decoded.Status != "failed" {
		t.Fatalf("unexpected body %+v", decoded)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.Publish(ctx, Progress("t9", "subtitle", 0.5, "")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

type stubPublisher struct {
	events []Event
	err    error
}

func (s *stubPublisher) Publish(_ context.Context, e Event) error {
	s.events = append(s.events, e)
	return s.err
}

func (s *stubPublisher) Close() error { return nil }

func TestFanoutDeliversToAllAndJoinsErrors(t *testing.T) {
	broken := &stubPublisher{err: errors.New("down")}
	healthy := &stubPublisher{}
	fan := Fanout{broken, nil, healthy}

	err := fan.Publish(context.Background(), Complete("t1", "fpsboost", "/x"))
	if err == nil || err.Error() != "down" {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(healthy.events) != 1 {
		t.Fatal("expected healthy publisher to still receive the event")
	}
}

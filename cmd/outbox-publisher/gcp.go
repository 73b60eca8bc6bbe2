package main

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

// orderedPublisher adapts a Pub/Sub handle. A failed publish pauses its
// ordering key, so the key is resumed before the row is retried.
type orderedPublisher struct {
	handle *gcppubsub.Publisher
}

func (p *orderedPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return &orderedResult{
		result: p.handle.Publish(ctx, msg),
		handle: p.handle,
		key:    msg.OrderingKey,
	}
}

type orderedResult struct {
	result *gcppubsub.PublishResult
	handle *gcppubsub.Publisher
	key    string
}

func (r *orderedResult) Get(ctx context.Context) (string, error) {
	if r.result == nil {
		return "", errors.New("publish result is nil")
	}
	id, err := r.result.Get(ctx)
	if err != nil && r.key != "" {
		r.handle.ResumePublish(r.key)
	}
	return id, err
}

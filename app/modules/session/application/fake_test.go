package sessionservice

import (
	"github.com/ThreeDotsLabs/watermill/message"
)

// ------------------------
// Fake Publisher
// ------------------------

type FakePublisher struct {
	trace []string

	PublishFunc func(topic string, messages ...*message.Message) error
}

func (f *FakePublisher) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakePublisher) Trace() []string {
	return append([]string(nil), f.trace...)
}

func (f *FakePublisher) Publish(topic string, messages ...*message.Message) error {
	f.record("Publish:" + topic)
	if f.PublishFunc != nil {
		return f.PublishFunc(topic, messages...)
	}
	return nil
}

func (f *FakePublisher) Close() error {
	f.record("Close")
	return nil
}

var _ message.Publisher = (*FakePublisher)(nil)

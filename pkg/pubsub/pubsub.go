package pubsub

import "sync"

const (
	// TopicGeneratorState carries the generator's state snapshot, published
	// once per tick and on every transition.
	TopicGeneratorState = "generatorState"
	// TopicSafetyCarDeployed fires once per safety car event, at trigger time.
	TopicSafetyCarDeployed = "safetyCarDeployed"
)

// subscriber channels are buffered so a stalled consumer can never hold up
// the generator loop; the freshest payloads win.
const subscriberBuffer = 8

type PubSub struct {
	mu   sync.Mutex
	subs map[string][]chan string
}

func NewPubSub() *PubSub {
	return &PubSub{
		subs: make(map[string][]chan string),
	}
}

func (ps *PubSub) Subscribe(topic string) <-chan string {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ch := make(chan string, subscriberBuffer)
	ps.subs[topic] = append(ps.subs[topic], ch)
	return ch
}

func (ps *PubSub) Publish(topic string, data string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for _, ch := range ps.subs[topic] {
		select {
		case ch <- data:
		default:
			// drop the oldest entry to make room for the fresh one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- data:
			default:
			}
		}
	}
}

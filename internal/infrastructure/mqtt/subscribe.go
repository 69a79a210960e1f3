package mqtt

import "fmt"

// Subscribe registers handler for topic, which may use the + and #
// wildcards. The subscription is tracked so handleConnect can replay
// it after a reconnect; a failed subscribe leaves no tracking behind.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.track(topic, subscription{qos: qos, handler: handler})

	token := c.client.Subscribe(topic, qos, c.dispatch(handler))
	if !token.WaitTimeout(publishTimeout) {
		c.untrack(topic)
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, publishTimeout)
	}
	if err := token.Error(); err != nil {
		c.untrack(topic)
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	return nil
}

// Unsubscribe stops delivery for topic. Messages already in flight may
// still reach the old handler.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.untrack(topic)

	token := c.client.Unsubscribe(topic)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrUnsubscribeFailed, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}
	return nil
}

// SubscriptionCount reports how many topics are tracked for replay.
func (c *Client) SubscriptionCount() int {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	return len(c.subs)
}

func (c *Client) track(topic string, sub subscription) {
	c.subsMu.Lock()
	if c.subs == nil {
		c.subs = make(map[string]subscription)
	}
	c.subs[topic] = sub
	c.subsMu.Unlock()
}

func (c *Client) untrack(topic string) {
	c.subsMu.Lock()
	delete(c.subs, topic)
	c.subsMu.Unlock()
}

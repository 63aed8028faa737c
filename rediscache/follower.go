package rediscache

import (
	"context"
	"encoding/json"

	"github.com/aalemi-dev/portmeta/metadata"
)

// Bootstrapper receives the types announced by other processes.
// *metadata.Manager implements it.
type Bootstrapper interface {
	Bootstrap(updates []metadata.TypeUpdate) error
}

// Follow subscribes to the update channel and bootstraps every type announced by
// another origin into b. The announced type is read back from Redis, so b always
// receives the full stored field set. Follow returns nil when ctx is done or the
// cache is closed; it returns an error only when the subscription cannot be set up.
func (c *Cache) Follow(ctx context.Context, b Bootstrapper) error {
	sub := c.client.Subscribe(ctx, c.cfg.Channel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return TranslateError(err)
	}
	c.logInfo(ctx, "Following redis metadata updates", map[string]interface{}{
		"channel": c.cfg.Channel,
	})

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.shutdownSignal:
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.apply(ctx, b, msg.Payload)
		}
	}
}

func (c *Cache) apply(ctx context.Context, b Bootstrapper, payload string) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		c.logWarn(ctx, "Dropping malformed redis notification", err, nil)
		return
	}
	if c.cfg.Origin != "" && n.Origin == c.cfg.Origin {
		return
	}

	u, found, err := c.Get(ctx, n.TypeID)
	if err != nil || !found {
		c.logWarn(ctx, "Failed to read announced type", err, map[string]interface{}{
			"type_id": n.TypeID,
		})
		return
	}
	if err := b.Bootstrap([]metadata.TypeUpdate{u}); err != nil {
		c.logWarn(ctx, "Failed to apply redis metadata update", err, map[string]interface{}{
			"type_id": n.TypeID,
			"origin":  n.Origin,
		})
	}
}

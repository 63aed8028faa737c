// Package kafka distributes published metadata between nodes over a Kafka topic.
//
// Publisher implements metadata.Updater. Every reconciliation writes one TypeEvent
// per updated type, keyed by type id so that events of one type stay ordered within a
// partition. Events are JSON by default; Config.Encoding "avro" writes Avro binary
// with TypeEventSchema instead:
//
//	pub, err := kafka.NewPublisher(kafka.Config{
//	    Brokers: []string{"localhost:9092"},
//	    Origin:  "node-1",
//	})
//	if err != nil {
//	    return err
//	}
//	defer pub.Close()
//
//	err = manager.ProcessPendingUpdates(ctx, pub)
//
// Follower is the receiving side. It consumes the topic as its own consumer group and
// merges every peer event into a Manager with Bootstrap:
//
//	f, err := kafka.NewFollower(kafka.Config{
//	    Brokers: []string{"localhost:9092"},
//	    GroupID: "portmeta-node-1",
//	    Origin:  "node-1",
//	}, manager)
//	if err != nil {
//	    return err
//	}
//	f.Start(ctx)
//	defer f.Close()
//
// Error handling:
//
// Broker errors are translated with TranslateError into the sentinels of this package.
// Authentication, authorization and oversized messages are permanent and are wrapped
// with metadata.Permanent by the Publisher; connection and leadership errors are
// retryable.
//
// Trace context travels in message headers when a tracer is configured on both sides.
package kafka

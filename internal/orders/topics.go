package orders

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status.changed"
)

// Partition key = order_id so all events of one order stay in sequence.
func PartitionKey(orderID string) []byte { return []byte(orderID) }

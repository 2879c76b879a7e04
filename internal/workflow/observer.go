package workflow

import (
	"picker/internal/observability"
	"picker/internal/queue"
)

type metricsObserver struct{}

func (metricsObserver) OperationEnqueued(op queue.Operation, replaced bool) {
	observability.RecordEnqueue(string(op.Lane()), string(op.Type), replaced)
}

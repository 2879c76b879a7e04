package queue

import orderedmap "github.com/wk8/go-ordered-map/v2"

// buffer maps dedup keys to the latest operation, in first-insertion order.
// Not safe for concurrent use; the Queue lock guards it.
type buffer struct {
	ops *orderedmap.OrderedMap[string, Operation]
}

func newBuffer() *buffer {
	return &buffer{ops: orderedmap.New[string, Operation]()}
}

// put stores op under its key. A replaced entry keeps its original position
// and takes the new payload. Reports whether a prior entry was replaced.
func (b *buffer) put(op Operation) bool {
	_, replaced := b.ops.Set(op.Key(), op)
	return replaced
}

func (b *buffer) len() int {
	return b.ops.Len()
}

func (b *buffer) operations() []Operation {
	ops := make([]Operation, 0, b.ops.Len())
	for pair := b.ops.Oldest(); pair != nil; pair = pair.Next() {
		ops = append(ops, pair.Value)
	}
	return ops
}

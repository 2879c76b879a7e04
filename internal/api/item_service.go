package api

import (
	"context"

	"picker/internal/config"
	"picker/internal/items"
	"picker/internal/queue"
	"picker/internal/services"
)

const queuedMessage = "Operation queued"

// ItemReader is the read side of the item store.
type ItemReader interface {
	ListAvailable(offset, limit int, filter string) items.Page
	ListSelected(offset, limit int, filter string) items.Page
	Stats() items.Stats
}

// Enqueuer accepts mutations for a later batch.
type Enqueuer interface {
	Enqueue(op queue.Operation)
}

// ItemService serves paginated views and queues validated mutations.
type ItemService struct {
	reader ItemReader
	queue  Enqueuer
	limits config.Items
}

// NewItemService constructs an ItemService.
func NewItemService(reader ItemReader, queue Enqueuer, limits config.Items) *ItemService {
	if reader == nil {
		return nil
	}
	return &ItemService{reader: reader, queue: queue, limits: limits}
}

// Limits returns the pagination bounds the service enforces.
func (s *ItemService) Limits() config.Items {
	return s.limits
}

// Available returns one page of available identifiers.
func (s *ItemService) Available(q PageQuery) ItemsResponse {
	q = q.clamp(s.limits)
	return pageResponse(s.reader.ListAvailable(q.Offset, q.Limit, q.Filter), q)
}

// Selected returns one page of the selected sequence.
func (s *ItemService) Selected(q PageQuery) ItemsResponse {
	q = q.clamp(s.limits)
	return pageResponse(s.reader.ListSelected(q.Offset, q.Limit, q.Filter), q)
}

// Stats returns the current set sizes.
func (s *ItemService) Stats() ItemStats {
	stats := s.reader.Stats()
	return ItemStats{Universe: stats.Universe, Selected: stats.Selected, Available: stats.Available}
}

// Mutate queues a select, deselect or add for id.
func (s *ItemService) Mutate(ctx context.Context, opType queue.OpType, id int64) (MutationResponse, error) {
	parsed, ok := queue.ParseOpType(string(opType))
	if !ok {
		return MutationResponse{}, validationError("mutate", "unknown operation")
	}
	if parsed == queue.OpReorder {
		return MutationResponse{}, validationError("mutate", "reorder requires an order")
	}
	opType = parsed
	if err := ValidateID(id); err != nil {
		return MutationResponse{}, err
	}
	return s.enqueue(ctx, queue.Operation{Type: opType, ID: id})
}

// Reorder queues a full replacement of the selected sequence.
func (s *ItemService) Reorder(ctx context.Context, order []int64) (MutationResponse, error) {
	if err := ValidateOrder(order); err != nil {
		return MutationResponse{}, err
	}
	return s.enqueue(ctx, queue.Operation{Type: queue.OpReorder, Order: order})
}

func (s *ItemService) enqueue(ctx context.Context, op queue.Operation) (MutationResponse, error) {
	if s.queue == nil {
		return MutationResponse{}, services.Wrap(services.ErrUnavailable, "api", "enqueue", "queue not running", nil)
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		op.RequestID = rid
	}
	s.queue.Enqueue(op)
	return MutationResponse{Success: true, Message: queuedMessage}, nil
}

func pageResponse(page items.Page, q PageQuery) ItemsResponse {
	resp := ItemsResponse{
		Items:  page.Items,
		Total:  page.Total,
		Offset: q.Offset,
		Limit:  q.Limit,
	}
	if resp.Items == nil {
		resp.Items = []int64{}
	}
	if q.Filter != "" {
		filter := q.Filter
		resp.Filter = &filter
	}
	return resp
}

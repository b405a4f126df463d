package course

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Entity names an ordered entity type.
type Entity string

const (
	EntityModule  Entity = "module"  // ordered within its course
	EntityContent Entity = "content" // ordered within its module
)

// Scope identifies the set of entities sharing one order sequence.
type Scope struct {
	Entity   Entity
	ParentID int64
}

func CourseModules(courseID int64) Scope  { return Scope{Entity: EntityModule, ParentID: courseID} }
func ModuleContents(moduleID int64) Scope { return Scope{Entity: EntityContent, ParentID: moduleID} }

// BulkOrder maps entity IDs to their new order.
type BulkOrder map[int64]int

// IDs returns the IDs of bo in ascending order.
func (bo BulkOrder) IDs() []int64 {
	ids := make([]int64, 0, len(bo))
	for id := range bo {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ParseBulkOrder parses a flat JSON object mapping IDs to orders, e.g. {"12": 0, "7": 1}.
// Orders may be JSON integers or strings holding an integer.
// Any malformed key or value aborts the whole batch with a *MalformedBulkInputError.
// Well-formed ids that match no entity (e.g. 0) are kept; applying them updates nothing.
func ParseBulkOrder(data []byte) (BulkOrder, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, &MalformedBulkInputError{Reason: "expected a JSON object mapping ids to orders"}
	}
	if raw == nil {
		return nil, &MalformedBulkInputError{Reason: "expected a JSON object mapping ids to orders"}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &MalformedBulkInputError{Reason: "unexpected data after JSON object"}
	}

	bo := make(BulkOrder, len(raw))
	for key, val := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		if err != nil {
			return nil, &MalformedBulkInputError{Key: key, Reason: "id must be an integer"}
		}
		order, err := parseOrder(val)
		if err != nil {
			return nil, &MalformedBulkInputError{Key: key, Reason: err.Error()}
		}
		bo[id] = order
	}
	return bo, nil
}

func parseOrder(val interface{}) (int, error) {
	var s string
	switch v := val.(type) {
	case json.Number:
		s = v.String()
	case string:
		s = strings.TrimSpace(v)
	default:
		return 0, errors.New("order must be an integer")
	}
	order, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.New("order must be an integer")
	}
	if order < 0 || order > math.MaxInt32 {
		return 0, errors.New("order out of range")
	}
	return int(order), nil
}

// OrderAssigner computes positions of new entities and applies bulk reorders.
type OrderAssigner struct {
	repo Repository
}

func NewOrderAssigner(repo Repository) *OrderAssigner {
	return &OrderAssigner{repo: repo}
}

// NextOrder returns the order of a new entity in scope: one past the current maximum, or 0 if the scope is empty.
// Callers creating entities concurrently must hold the scope lock (see Repository.LockScope)
// until the new entity is inserted.
func (oa *OrderAssigner) NextOrder(ctx context.Context, scope Scope) (int, error) {
	max, ok, err := oa.repo.MaxOrder(ctx, scope)
	if err != nil {
		return 0, errors.Wrapf(err, "getting max %s order", scope.Entity)
	}
	if !ok {
		return 0, nil
	}
	return max + 1, nil
}

// ApplyBulkOrder sets the order of each entity in updates owned by ownerID, in ascending ID order.
// Entities that do not exist or are owned by someone else are skipped silently.
// Each update is independent: a failure leaves the previous ones applied.
// It returns the number of updated entities.
func (oa *OrderAssigner) ApplyBulkOrder(ctx context.Context, entity Entity, updates BulkOrder, ownerID string) (int, error) {
	var applied int
	for _, id := range updates.IDs() {
		ok, err := oa.repo.SetOwnedOrder(ctx, entity, id, updates[id], ownerID)
		if err != nil {
			return applied, errors.Wrapf(err, "setting %s %d order", entity, id)
		}
		if ok {
			applied++
		}
	}
	return applied, nil
}

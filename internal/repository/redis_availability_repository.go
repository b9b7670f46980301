package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
	pkgredis "github.com/khainghsuthwe/ReserveMyTable/pkg/redis"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/telemetry"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:embed scripts/adjust_available.lua
var adjustAvailableScript string

//go:embed scripts/resize_capacity.lua
var resizeCapacityScript string

//go:embed scripts/reconcile_available.lua
var reconcileAvailableScript string

//go:embed scripts/seed_slot.lua
var seedSlotScript string

// Script names for caching
const (
	scriptAdjustAvailable    = "adjust_available"
	scriptResizeCapacity     = "resize_capacity"
	scriptReconcileAvailable = "reconcile_available"
	scriptSeedSlot           = "seed_slot"
)

// Script error codes
const (
	codeSlotNotFound      = "SLOT_NOT_FOUND"
	codeTableTypeNotFound = "TABLE_TYPE_NOT_FOUND"
	codeCapacityExceeded  = "CAPACITY_EXCEEDED"
	codeCounterChanged    = "COUNTER_CHANGED"
)

const (
	slotKeyPrefix    = "availability:slot:"
	dayKeyPrefix     = "availability:day:"
	slotIndexKey     = "availability:slots"
	fieldTime        = "time"
	fieldCapPrefix   = "cap:"
	fieldAvailPrefix = "avail:"
)

// RedisAvailabilityRepository stores each slot as a Redis hash
// (time, cap:<type>, avail:<type>) and mutates it with Lua scripts,
// which Redis runs atomically.
type RedisAvailabilityRepository struct {
	client *pkgredis.Client
}

// NewRedisAvailabilityRepository creates a new RedisAvailabilityRepository
func NewRedisAvailabilityRepository(client *pkgredis.Client) *RedisAvailabilityRepository {
	return &RedisAvailabilityRepository{client: client}
}

// LoadScripts loads all Lua scripts into Redis
func (r *RedisAvailabilityRepository) LoadScripts(ctx context.Context) error {
	scripts := map[string]string{
		scriptAdjustAvailable:    adjustAvailableScript,
		scriptResizeCapacity:     resizeCapacityScript,
		scriptReconcileAvailable: reconcileAvailableScript,
		scriptSeedSlot:           seedSlotScript,
	}
	for name, script := range scripts {
		if _, err := r.client.LoadScript(ctx, name, script); err != nil {
			return err
		}
	}
	return nil
}

func slotHashKey(k domain.SlotKey) string {
	return fmt.Sprintf("%s%s:%s:%s", slotKeyPrefix, k.RestaurantID, k.Date, k.SlotID)
}

func dayIndexKey(restaurantID, date string) string {
	return fmt.Sprintf("%s%s:%s", dayKeyPrefix, restaurantID, date)
}

func slotIndexMember(k domain.SlotKey) string {
	return k.RestaurantID + "|" + k.Date + "|" + k.SlotID
}

// GetSlot returns a snapshot of one slot
func (r *RedisAvailabilityRepository) GetSlot(ctx context.Context, key domain.SlotKey) (*domain.TimeSlot, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.availability.get_slot")
	defer span.End()
	span.SetAttributes(attribute.String("slot", key.String()))

	fields, err := r.client.HGetAll(ctx, slotHashKey(key)).Result()
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to read slot: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrSlotNotFound
	}
	return slotFromHash(key, fields)
}

// ListDay returns every slot of a restaurant on a date
func (r *RedisAvailabilityRepository) ListDay(ctx context.Context, restaurantID, date string) ([]*domain.TimeSlot, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.availability.list_day")
	defer span.End()
	span.SetAttributes(attribute.String("restaurant_id", restaurantID), attribute.String("date", date))

	slotIDs, err := r.client.SMembers(ctx, dayIndexKey(restaurantID, date)).Result()
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to read day index: %w", err)
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(slotIDs))
	keys := make([]domain.SlotKey, len(slotIDs))
	for i, id := range slotIDs {
		keys[i] = domain.SlotKey{RestaurantID: restaurantID, Date: date, SlotID: id}
		cmds[i] = pipe.HGetAll(ctx, slotHashKey(keys[i]))
	}
	if len(cmds) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to read slots: %w", err)
		}
	}

	out := make([]*domain.TimeSlot, 0, len(cmds))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		slot, err := slotFromHash(keys[i], fields)
		if err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	domain.SortSlots(out)
	return out, nil
}

// ListKeys returns every known slot key
func (r *RedisAvailabilityRepository) ListKeys(ctx context.Context) ([]domain.SlotKey, error) {
	members, err := r.client.SMembers(ctx, slotIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read slot index: %w", err)
	}

	keys := make([]domain.SlotKey, 0, len(members))
	for _, m := range members {
		parts := strings.SplitN(m, "|", 3)
		if len(parts) != 3 {
			continue
		}
		keys = append(keys, domain.SlotKey{RestaurantID: parts[0], Date: parts[1], SlotID: parts[2]})
	}
	return keys, nil
}

// Adjust applies delta to available inside a Lua script
func (r *RedisAvailabilityRepository) Adjust(ctx context.Context, key domain.SlotKey, tableType string, delta int) (*domain.TimeSlot, error) {
	return r.evalSlotScript(ctx, "repo.redis.availability.adjust", scriptAdjustAvailable, adjustAvailableScript, key, tableType, delta)
}

// Resize moves capacity and available together inside a Lua script
func (r *RedisAvailabilityRepository) Resize(ctx context.Context, key domain.SlotKey, tableType string, delta int) (*domain.TimeSlot, error) {
	return r.evalSlotScript(ctx, "repo.redis.availability.resize", scriptResizeCapacity, resizeCapacityScript, key, tableType, delta)
}

// Reconcile sets available = capacity - reserved inside a Lua script
func (r *RedisAvailabilityRepository) Reconcile(ctx context.Context, key domain.SlotKey, tableType string, expectedAvailable, reserved int) (*domain.TimeSlot, error) {
	return r.evalSlotScript(ctx, "repo.redis.availability.reconcile", scriptReconcileAvailable, reconcileAvailableScript, key, tableType, reserved, expectedAvailable)
}

// Seed creates the slot or adds table types it lacks
func (r *RedisAvailabilityRepository) Seed(ctx context.Context, slot *domain.TimeSlot) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.availability.seed")
	defer span.End()
	span.SetAttributes(attribute.String("slot", slot.SlotKey.String()))

	keys := []string{
		slotHashKey(slot.SlotKey),
		dayIndexKey(slot.RestaurantID, slot.Date),
		slotIndexKey,
	}
	args := []interface{}{slot.Time, slot.SlotID, slotIndexMember(slot.SlotKey)}
	for _, tc := range slot.Tables {
		args = append(args, tc.Type, tc.Capacity, seedAvailable(tc))
	}

	created, err := r.client.EvalWithFallback(ctx, scriptSeedSlot, seedSlotScript, keys, args...).Int64()
	if err != nil {
		telemetry.RecordError(span, err)
		return false, fmt.Errorf("failed to execute seed_slot script: %w", err)
	}
	return created == 1, nil
}

func (r *RedisAvailabilityRepository) evalSlotScript(ctx context.Context, spanName, scriptName, script string, key domain.SlotKey, tableType string, n int, extra ...interface{}) (*domain.TimeSlot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()
	span.SetAttributes(
		attribute.String("slot", key.String()),
		attribute.String("table_type", tableType),
		attribute.Int("n", n),
	)

	// The script is not cancellable once sent; detach so a client disconnect
	// cannot leave the outcome unknown.
	args := append([]interface{}{tableType, n}, extra...)
	result := r.client.EvalWithFallback(context.WithoutCancel(ctx), scriptName, script, []string{slotHashKey(key)}, args...)
	values, err := result.Slice()
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to execute %s script: %w", scriptName, err)
	}
	if len(values) < 2 {
		span.SetStatus(codes.Error, "unexpected result length")
		return nil, fmt.Errorf("unexpected %s result length: %d", scriptName, len(values))
	}

	if ok, _ := toInt64(values[0]); ok != 1 {
		code, _ := values[1].(string)
		span.SetAttributes(attribute.String("error_code", code))
		span.SetStatus(codes.Error, code)
		return nil, scriptError(code)
	}

	flat, ok := values[1].([]interface{})
	if !ok {
		return nil, errors.New("unexpected slot payload in script result")
	}
	fields := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		k, _ := flat[i].(string)
		v, _ := flat[i+1].(string)
		fields[k] = v
	}

	span.SetStatus(codes.Ok, "")
	return slotFromHash(key, fields)
}

func scriptError(code string) error {
	switch code {
	case codeSlotNotFound:
		return domain.ErrSlotNotFound
	case codeTableTypeNotFound:
		return domain.ErrTableTypeNotFound
	case codeCapacityExceeded:
		return domain.ErrCapacity
	case codeCounterChanged:
		return domain.ErrCounterChanged
	default:
		return fmt.Errorf("unknown script error code %q", code)
	}
}

func slotFromHash(key domain.SlotKey, fields map[string]string) (*domain.TimeSlot, error) {
	slot := &domain.TimeSlot{SlotKey: key, Time: fields[fieldTime]}
	for f, v := range fields {
		typ, ok := strings.CutPrefix(f, fieldCapPrefix)
		if !ok {
			continue
		}
		capacity, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("corrupt capacity for %s/%s: %w", key, typ, err)
		}
		available, err := strconv.Atoi(fields[fieldAvailPrefix+typ])
		if err != nil {
			return nil, fmt.Errorf("corrupt available for %s/%s: %w", key, typ, err)
		}
		slot.Tables = append(slot.Tables, domain.TableCount{Type: typ, Capacity: capacity, Available: available})
	}
	slot.SortTables()
	return slot, nil
}

// toInt64 converts interface{} to int64
func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case string:
		i, err := strconv.ParseInt(val, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

var _ AvailabilityRepository = (*RedisAvailabilityRepository)(nil)

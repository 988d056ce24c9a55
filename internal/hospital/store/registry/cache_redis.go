package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"medledger/internal/hospital/models"
	id "medledger/pkg/domain"
)

var cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "medledger_registry_cache_hits_total",
	Help: "Registry cache lookups by outcome",
}, []string{"outcome"})

const (
	staffKeyPrefix   = "registry:staff:"
	patientKeyPrefix = "registry:patient:"
)

// Store is what the cache decorates; both InMemory and Postgres satisfy it.
type Store interface {
	CreateStaff(ctx context.Context, staff *models.Staff) error
	FindStaff(ctx context.Context, staffID id.StaffID) (*models.Staff, error)
	ExecuteStaff(ctx context.Context, staffID id.StaffID, validate func(*models.Staff) error, mutate func(*models.Staff)) (*models.Staff, error)
	CreatePatient(ctx context.Context, patient *models.Patient) error
	FindPatient(ctx context.Context, patientID id.PatientID) (*models.Patient, error)
	ExecutePatient(ctx context.Context, patientID id.PatientID, validate func(*models.Patient) error, mutate func(*models.Patient)) (*models.Patient, error)
}

// RedisCache is a read-through cache over a registry store. Lookups are
// served from Redis when possible; mutations write through to the backing
// store and refresh the cached copy. Cache misses and Redis failures fall
// back to the backing store, so the cache is never load-bearing for
// correctness.
type RedisCache struct {
	next   Store
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(next Store, client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{next: next, client: client, ttl: ttl}
}

func (c *RedisCache) CreateStaff(ctx context.Context, staff *models.Staff) error {
	if err := c.next.CreateStaff(ctx, staff); err != nil {
		return err
	}
	c.put(ctx, staffKeyPrefix+staff.ID.String(), staff)
	return nil
}

func (c *RedisCache) FindStaff(ctx context.Context, staffID id.StaffID) (*models.Staff, error) {
	key := staffKeyPrefix + staffID.String()
	var cached models.Staff
	if c.get(ctx, key, &cached) {
		return &cached, nil
	}
	staff, err := c.next.FindStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, staff)
	return staff, nil
}

func (c *RedisCache) ExecuteStaff(
	ctx context.Context,
	staffID id.StaffID,
	validate func(*models.Staff) error,
	mutate func(*models.Staff),
) (*models.Staff, error) {
	staff, err := c.next.ExecuteStaff(ctx, staffID, validate, mutate)
	if err != nil {
		return nil, err
	}
	c.put(ctx, staffKeyPrefix+staffID.String(), staff)
	return staff, nil
}

func (c *RedisCache) CreatePatient(ctx context.Context, patient *models.Patient) error {
	if err := c.next.CreatePatient(ctx, patient); err != nil {
		return err
	}
	c.put(ctx, patientKeyPrefix+patient.ID.String(), patient)
	return nil
}

func (c *RedisCache) FindPatient(ctx context.Context, patientID id.PatientID) (*models.Patient, error) {
	key := patientKeyPrefix + patientID.String()
	var cached models.Patient
	if c.get(ctx, key, &cached) {
		return &cached, nil
	}
	patient, err := c.next.FindPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, patient)
	return patient, nil
}

func (c *RedisCache) ExecutePatient(
	ctx context.Context,
	patientID id.PatientID,
	validate func(*models.Patient) error,
	mutate func(*models.Patient),
) (*models.Patient, error) {
	patient, err := c.next.ExecutePatient(ctx, patientID, validate, mutate)
	if err != nil {
		return nil, err
	}
	c.put(ctx, patientKeyPrefix+patientID.String(), patient)
	return patient, nil
}

func (c *RedisCache) get(ctx context.Context, key string, dest any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		cacheHits.WithLabelValues("miss").Inc()
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		cacheHits.WithLabelValues("miss").Inc()
		return false
	}
	cacheHits.WithLabelValues("hit").Inc()
	return true
}

func (c *RedisCache) put(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	// Best effort: a failed cache write only costs a later miss.
	_ = c.client.Set(ctx, key, raw, c.ttl).Err()
}

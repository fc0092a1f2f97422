// bouchon/pkg/store/redis_store.go

package store

import (
	"context"
	"encoding/json"

	"bouchon/pkg/flow"
	"bouchon/pkg/logging"
	"bouchon/pkg/scenario"

	"github.com/redis/go-redis/v9"
)

var ctx = context.Background()

const (
	scenarioKeyPrefix = "bouchon:scenario:"
	orderKey          = "bouchon:scenarios"
	currentKey        = "bouchon:current"
)

type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis at the given address and returns a
// scenario persister backed by it.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	logging.Logger.Info().Str("addr", addr).Int("db", db).Msg("Connecting to Redis")

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		logging.Logger.Error().Err(err).Msg("Failed to connect to Redis")
		return nil, err
	}

	logging.Logger.Info().Msg("Successfully connected to Redis")
	return &RedisStore{client: client}, nil
}

// SaveScenario serializes the scenario's flows and rules to JSON and stores
// them under its name, keeping the insertion-order list in step.
func (s *RedisStore) SaveScenario(sc *scenario.Scenario) error {
	rules := make(map[string]map[string][]scenario.Fields)
	for id, rs := range sc.Rules() {
		rules[id] = rs.ToMap()
	}
	data, err := json.Marshal(PersistedScenario{
		Name:  sc.Name,
		Flows: sc.Flows(),
		Rules: rules,
	})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, scenarioKeyPrefix+sc.Name, data, 0).Err(); err != nil {
		logging.Logger.Error().Err(err).Str("scenario", sc.Name).Msg("Failed to save scenario")
		return err
	}
	// Append to the order list only on first save.
	err = s.client.LPos(ctx, orderKey, sc.Name, redis.LPosArgs{}).Err()
	if err == redis.Nil {
		return s.client.RPush(ctx, orderKey, sc.Name).Err()
	}
	return err
}

// DeleteScenario removes the scenario record and its order entry.
func (s *RedisStore) DeleteScenario(name string) error {
	if err := s.client.Del(ctx, scenarioKeyPrefix+name).Err(); err != nil {
		return err
	}
	return s.client.LRem(ctx, orderKey, 0, name).Err()
}

// SaveCurrent stores the current-scenario pointer. "" is stored as a delete.
func (s *RedisStore) SaveCurrent(name string) error {
	if name == "" {
		return s.client.Del(ctx, currentKey).Err()
	}
	return s.client.Set(ctx, currentKey, name, 0).Err()
}

// LoadAll returns every persisted scenario in insertion order plus the
// current pointer. Records that fail to decode are skipped with a log line
// rather than failing the whole restore.
func (s *RedisStore) LoadAll() ([]PersistedScenario, string, error) {
	names, err := s.client.LRange(ctx, orderKey, 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, "", err
	}

	out := make([]PersistedScenario, 0, len(names))
	for _, name := range names {
		data, err := s.client.Get(ctx, scenarioKeyPrefix+name).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		var ps PersistedScenario
		if err := json.Unmarshal([]byte(data), &ps); err != nil {
			logging.Logger.Error().Err(err).Str("scenario", name).Msg("Failed to decode persisted scenario")
			continue
		}
		out = append(out, ps)
	}

	current, err := s.client.Get(ctx, currentKey).Result()
	if err == redis.Nil {
		current = ""
	} else if err != nil {
		return nil, "", err
	}
	return out, current, nil
}

// Restore rebuilds the in-memory store and live view from persisted state.
// Called once at startup, before the API starts serving.
func Restore(persisted []PersistedScenario, current string, st *scenario.Store, view *flow.View) {
	for _, ps := range persisted {
		if err := st.Add(ps.Name); err != nil {
			logging.LogError(logging.Logger, err)
			continue
		}
		sc, err := st.Get(ps.Name)
		if err != nil {
			continue
		}
		for _, f := range ps.Flows {
			view.Add(f)
			sc.AddFlow(f)
		}
		for id, m := range ps.Rules {
			if err := sc.SetRules(id, scenario.RuleSetFromMap(m)); err != nil {
				logging.LogError(logging.Logger, err)
			}
		}
	}
	if current != "" {
		if err := st.SetCurrent(current); err != nil {
			logging.LogError(logging.Logger, err)
		}
	}
	logging.Logger.Info().Int("scenarios", len(persisted)).Str("current", current).
		Msg("Restored persisted scenarios")
}

package responses

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
)

// Step is the question a draft is waiting for.
type Step string

const (
	StepInterest       Step = "interest"
	StepRelevance      Step = "relevance"
	StepSpiritual      Step = "spiritual"
	StepFeedbackChoice Step = "feedback_choice"
	StepFeedbackText   Step = "feedback_text"
)

// stepFor maps a score dimension to the step that accepts it.
var stepFor = map[models.Dimension]Step{
	models.DimInterest:  StepInterest,
	models.DimRelevance: StepRelevance,
	models.DimSpiritual: StepSpiritual,
}

// Draft is an unfinished rating. It lives only in a DraftStore and never
// reaches the durable store as such.
type Draft struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	SurveyID  int64     `json:"survey_id"`
	Step      Step      `json:"step"`
	Interest  int       `json:"interest,omitempty"`
	Relevance int       `json:"relevance,omitempty"`
	Spiritual int       `json:"spiritual,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DraftStore keeps at most one draft per user. Get reports found=false for
// missing or expired drafts.
type DraftStore interface {
	Get(ctx context.Context, userID int64) (Draft, bool, error)
	Put(ctx context.Context, d Draft) error
	Delete(ctx context.Context, userID int64) error
}

// MemoryDraftStore keeps drafts in process memory. Drafts older than the TTL
// are dropped on access and by Purge.
type MemoryDraftStore struct {
	mu     sync.Mutex
	drafts map[int64]Draft
	ttl    time.Duration
	now    func() time.Time
}

func NewMemoryDraftStore(ttl time.Duration, now func() time.Time) *MemoryDraftStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryDraftStore{drafts: make(map[int64]Draft), ttl: ttl, now: now}
}

func (m *MemoryDraftStore) expired(d Draft) bool {
	return m.ttl > 0 && m.now().Sub(d.UpdatedAt) >= m.ttl
}

func (m *MemoryDraftStore) Get(_ context.Context, userID int64) (Draft, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[userID]
	if !ok {
		return Draft{}, false, nil
	}
	if m.expired(d) {
		delete(m.drafts, userID)
		return Draft{}, false, nil
	}
	return d, true, nil
}

func (m *MemoryDraftStore) Put(_ context.Context, d Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[d.UserID] = d
	return nil
}

func (m *MemoryDraftStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, userID)
	return nil
}

// Purge drops expired drafts and returns how many were removed.
func (m *MemoryDraftStore) Purge() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, d := range m.drafts {
		if m.expired(d) {
			delete(m.drafts, id)
			n++
		}
	}
	return n
}

// RedisDraftStore keeps drafts as JSON values that expire after the TTL, so
// they survive a bot restart.
type RedisDraftStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisDraftStore(client *redis.Client, ttl time.Duration) *RedisDraftStore {
	return &RedisDraftStore{client: client, ttl: ttl, prefix: "survey:draft:"}
}

func (r *RedisDraftStore) key(userID int64) string {
	return r.prefix + strconv.FormatInt(userID, 10)
}

func (r *RedisDraftStore) Get(ctx context.Context, userID int64) (Draft, bool, error) {
	raw, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Draft{}, false, nil
	}
	if err != nil {
		return Draft{}, false, models.Persistence("redis: get draft", err)
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		// unreadable drafts are dropped
		_ = r.client.Del(ctx, r.key(userID)).Err()
		return Draft{}, false, nil
	}
	return d, true, nil
}

func (r *RedisDraftStore) Put(ctx context.Context, d Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return models.Persistence("redis: put draft", r.client.Set(ctx, r.key(d.UserID), raw, r.ttl).Err())
}

func (r *RedisDraftStore) Delete(ctx context.Context, userID int64) error {
	return models.Persistence("redis: delete draft", r.client.Del(ctx, r.key(userID)).Err())
}

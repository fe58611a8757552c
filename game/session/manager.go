package session

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/idleclicker/game/engine"
	"github.com/wricardo/mcp-training/idleclicker/game/service"
)

var (
	// ErrSessionNotFound is service.ErrPlayerNotFound so callers above the
	// session layer can match it without importing this package
	ErrSessionNotFound      = service.ErrPlayerNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

var validID = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// Option configures a Manager
type Option func(*Manager)

// WithPersistence stores every committed mutation
func WithPersistence(persistence SessionPersistence) Option {
	return func(m *Manager) { m.persistence = persistence }
}

// WithScheduler drives each open world's simulation clock
func WithScheduler(scheduler engine.Scheduler) Option {
	return func(m *Manager) { m.scheduler = scheduler }
}

// WithClock sets the time source for new worlds
func WithClock(clock engine.Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithRandFactory sets how each world gets its random source
func WithRandFactory(factory func(playerID string) engine.Rand) Option {
	return func(m *Manager) { m.randFactory = factory }
}

// WithTickListener receives every world's tick reports
func WithTickListener(listener func(playerID string, report engine.TickReport)) Option {
	return func(m *Manager) { m.onTick = listener }
}

// Manager handles player world lifecycle. Each player id maps to exactly one
// open engine.
type Manager struct {
	sessions    map[string]*service.Session
	configs     service.ConfigManager
	persistence SessionPersistence
	scheduler   engine.Scheduler
	clock       engine.Clock
	logger      *slog.Logger
	randFactory func(playerID string) engine.Rand
	onTick      func(playerID string, report engine.TickReport)
	mu          sync.RWMutex
}

// NewManager creates a new session manager
func NewManager(configs service.ConfigManager, opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*service.Session),
		configs:  configs,
		clock:    engine.SystemClock{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewManagerWithPersistence creates a new session manager with persistence
func NewManagerWithPersistence(configs service.ConfigManager, persistence SessionPersistence, opts ...Option) *Manager {
	return NewManager(configs, append([]Option{WithPersistence(persistence)}, opts...)...)
}

// NormalizeID trims and lower-cases a player id and checks its alphabet
func NormalizeID(id string) (string, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if !validID.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return id, nil
}

// Create opens a fresh world for id using the named economy ("" for the default)
func (m *Manager) Create(id, displayName, economy string) (*service.Session, error) {
	id, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; exists {
		return nil, ErrSessionAlreadyExists
	}
	if m.persistence != nil && m.persistence.Exists(id) {
		return nil, ErrSessionAlreadyExists
	}

	now := m.clock.Now()
	session := &service.Session{
		ID:             id,
		DisplayName:    displayName,
		Economy:        strings.TrimSpace(economy),
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	if err := m.open(session, nil); err != nil {
		return nil, err
	}
	session.DisplayName = session.Engine.View().Player.DisplayName

	m.sessions[id] = session
	m.persist(session)
	m.logger.Info("player world created", "player_id", id, "economy", session.Economy)
	return session, nil
}

// Get retrieves an open world, loading it from persistence when needed
func (m *Manager) Get(id string) (*service.Session, error) {
	id, err := NormalizeID(id)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	m.mu.RLock()
	session, exists := m.sessions[id]
	m.mu.RUnlock()
	if exists {
		return session, nil
	}

	if m.persistence == nil || !m.persistence.Exists(id) {
		return nil, ErrSessionNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if session, exists := m.sessions[id]; exists {
		return session, nil
	}
	session, err = m.restore(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}
	m.sessions[id] = session
	return session, nil
}

// GetOrCreate gets an existing world or creates a new one
func (m *Manager) GetOrCreate(id, displayName, economy string) (*service.Session, error) {
	session, err := m.Get(id)
	if err == nil {
		return session, nil
	}
	if errors.Is(err, ErrSessionNotFound) {
		session, err = m.Create(id, displayName, economy)
		if errors.Is(err, ErrSessionAlreadyExists) {
			// Lost a race with another creator
			return m.Get(id)
		}
		return session, err
	}
	return nil, err
}

// List returns all open worlds
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

// Delete closes a world and removes it from memory and persistence
func (m *Manager) Delete(id string) error {
	id, err := NormalizeID(id)
	if err != nil {
		return ErrSessionNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	session, inMemory := m.sessions[id]
	if inMemory {
		session.Engine.Close()
		delete(m.sessions, id)
	}

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteFromMemory closes a world without touching persistence
func (m *Manager) DeleteFromMemory(id string) error {
	id, err := NormalizeID(id)
	if err != nil {
		return ErrSessionNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[id]
	if !exists {
		return ErrSessionNotFound
	}
	session.Engine.Close()
	delete(m.sessions, id)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a world
func (m *Manager) UpdateLastAccessed(id string) error {
	id, err := NormalizeID(id)
	if err != nil {
		return ErrSessionNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[id]
	if !exists {
		return ErrSessionNotFound
	}
	session.LastAccessedAt = m.clock.Now()
	return nil
}

// Save writes the current snapshot of a world to persistence
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil // No persistence configured
	}
	id, err := NormalizeID(id)
	if err != nil {
		return ErrSessionNotFound
	}

	m.mu.RLock()
	session, exists := m.sessions[id]
	m.mu.RUnlock()
	if !exists {
		return ErrSessionNotFound
	}
	return m.save(session)
}

// CleanupExpiredSessions saves and closes worlds that haven't been accessed
// in the given duration. They reload from persistence on next access.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.clock.Now().Add(-maxAge)
	removed := 0
	for id, session := range m.sessions {
		if !session.LastAccessedAt.Before(cutoff) {
			continue
		}
		if m.persistence != nil {
			if err := m.save(session); err != nil {
				m.logger.Warn("failed to save expiring world", "player_id", id, "error", err)
			}
		}
		session.Engine.Close()
		delete(m.sessions, id)
		removed++
	}
	if removed > 0 {
		m.logger.Info("expired idle worlds", "count", removed)
	}
	return removed
}

// Count returns the number of open worlds
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// LoadPersistedSessions opens every persisted world
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil // No persistence configured
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loadedCount := 0
	for _, id := range ids {
		id, err := NormalizeID(id)
		if err != nil {
			m.logger.Warn("skipping persisted world with invalid id", "player_id", id)
			continue
		}
		if _, exists := m.sessions[id]; exists {
			continue
		}

		session, err := m.restore(id)
		if err != nil {
			m.logger.Warn("failed to load persisted world", "player_id", id, "error", err)
			continue
		}
		m.sessions[id] = session
		loadedCount++
	}

	if loadedCount > 0 {
		m.logger.Info("loaded persisted worlds", "count", loadedCount)
	}
	return nil
}

// SaveAllSessions saves all open worlds to persistence
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil // No persistence configured
	}

	errorCount := 0
	for _, session := range m.List() {
		if err := m.save(session); err != nil {
			m.logger.Warn("failed to save world", "player_id", session.ID, "error", err)
			errorCount++
		}
	}
	if errorCount > 0 {
		return fmt.Errorf("failed to save %d sessions", errorCount)
	}
	return nil
}

// Close saves and closes every open world
func (m *Manager) Close() error {
	err := m.SaveAllSessions()

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, session := range m.sessions {
		session.Engine.Close()
		delete(m.sessions, id)
	}
	return err
}

// restore must be called with the write lock held
func (m *Manager) restore(id string) (*service.Session, error) {
	record, err := m.persistence.Load(id)
	if err != nil {
		return nil, err
	}

	session := &service.Session{
		ID:             id,
		DisplayName:    record.DisplayName,
		Economy:        record.Economy,
		CreatedAt:      record.CreatedAt,
		LastAccessedAt: m.clock.Now(),
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = session.LastAccessedAt
	}
	if err := m.open(session, record.Snapshot); err != nil {
		return nil, err
	}
	return session, nil
}

// open builds the engine for session, restoring it from raw when given
func (m *Manager) open(session *service.Session, raw []byte) error {
	config, err := m.economy(session.Economy)
	if err != nil {
		return err
	}

	id, economy, createdAt := session.ID, session.Economy, session.CreatedAt
	opts := []engine.Option{
		engine.WithClock(m.clock),
		engine.WithLogger(m.logger),
	}
	if m.randFactory != nil {
		opts = append(opts, engine.WithRand(m.randFactory(id)))
	}
	if m.persistence != nil {
		opts = append(opts, engine.WithSnapshotSink(engine.SnapshotSinkFunc(func(snapshot *engine.Snapshot) error {
			record, err := NewRecord(id, economy, createdAt, snapshot)
			if err != nil {
				return err
			}
			return m.persistence.Save(record)
		})))
	}
	if raw != nil {
		opts = append(opts, engine.WithSnapshot(raw))
	}

	eng, err := engine.NewEngine(config, engine.Identity{ID: id, DisplayName: session.DisplayName}, opts...)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	if m.scheduler != nil {
		eng.Start(m.scheduler, func(report engine.TickReport) {
			if m.onTick != nil {
				m.onTick(id, report)
			}
		})
	}
	session.Engine = eng
	return nil
}

// economy resolves an economy name, "" meaning the default
func (m *Manager) economy(name string) (*engine.EconomyConfig, error) {
	if m.configs == nil {
		return engine.DefaultEconomyConfig(), nil
	}
	if name == "" {
		return m.configs.GetDefault(), nil
	}
	config, err := m.configs.LoadConfig(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load economy '%s': %w", name, err)
	}
	return config, nil
}

func (m *Manager) save(session *service.Session) error {
	record, err := NewRecord(session.ID, session.Economy, session.CreatedAt, session.Engine.Snapshot())
	if err != nil {
		return err
	}
	return m.persistence.Save(record)
}

// persist writes the initial record of a new world; failures are logged
func (m *Manager) persist(session *service.Session) {
	if m.persistence == nil {
		return
	}
	if err := m.save(session); err != nil {
		m.logger.Warn("failed to persist new world", "player_id", session.ID, "error", err)
	}
}

package storage

import (
	"sync"
	"time"
)

type MemoryStorage struct {
	sessions map[int64]*Session
	mutex    sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		sessions: make(map[int64]*Session),
	}
}

func (m *MemoryStorage) Get(userId int64) (*Session, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if s, ok := m.sessions[userId]; ok {
		cc := *s
		return &cc, nil
	}
	return NewSession(userId), nil
}

func (m *MemoryStorage) Reset(userId int64) (*Session, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	s := NewSession(userId)
	m.sessions[userId] = s
	cc := *s
	return &cc, nil
}

func (m *MemoryStorage) SetField(userId int64, field Field, value string) (*Session, error) {
	return m.SetFields(userId, map[Field]string{field: value})
}

func (m *MemoryStorage) SetFields(userId int64, values map[Field]string) (*Session, error) {
	if err := validFields(values); err != nil {
		return nil, err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, ok := m.sessions[userId]
	if !ok {
		s = NewSession(userId)
		m.sessions[userId] = s
	}
	for field, value := range values {
		_ = s.Set(field, value)
	}
	s.UpdatedAt = time.Now()

	cc := *s
	return &cc, nil
}

func (m *MemoryStorage) Evict(olderThan time.Time) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	removed := 0
	for userId, s := range m.sessions {
		if s.UpdatedAt.Before(olderThan) {
			delete(m.sessions, userId)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStorage) Count() (int, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions), nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

package photo

import (
	"context"
	"fmt"
	"sync"
)

// Memory keeps photos in process memory. Tests and local development only.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return "memory://" + key, nil
}

func (m *Memory) PresignGet(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return "", fmt.Errorf("photo %q not stored", key)
	}
	return "memory://" + key, nil
}

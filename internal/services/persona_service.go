package services

import (
	"fmt"
	"log"
	"sync"

	"solace/internal/config"
	"solace/internal/models"
)

// PersonaService holds the selectable companion personas. The registry
// is hot-reloadable; the file watcher in main calls Reload on changes.
type PersonaService struct {
	mu        sync.RWMutex
	personas  map[string]models.Persona
	defaultID string
	path      string
}

// NewPersonaService loads the persona registry from the given file.
func NewPersonaService(path string) (*PersonaService, error) {
	s := &PersonaService{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the personas file. On failure the previous registry is
// kept so a bad edit never takes personas away from live traffic.
func (s *PersonaService) Reload() error {
	cfg, err := config.LoadPersonas(s.path)
	if err != nil {
		return err
	}

	personas := make(map[string]models.Persona, len(cfg.Personas))
	for _, p := range cfg.Personas {
		personas[p.ID] = p
	}

	defaultID := cfg.Default
	if _, ok := personas[defaultID]; !ok {
		defaultID = cfg.Personas[0].ID
	}

	s.mu.Lock()
	s.personas = personas
	s.defaultID = defaultID
	s.mu.Unlock()

	log.Printf("✅ [PERSONA] Loaded %d personas (default: %s)", len(personas), defaultID)
	return nil
}

// Get returns the persona for id, falling back to the default persona
// for unknown ids.
func (s *PersonaService) Get(id string) models.Persona {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.personas[id]; ok {
		return p
	}
	return s.personas[s.defaultID]
}

// List returns all persona ids.
func (s *PersonaService) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.personas))
	for id := range s.personas {
		ids = append(ids, id)
	}
	return ids
}

// Validate checks the registry shape for the preflight path.
func (s *PersonaService) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, p := range s.personas {
		if p.SystemPrompt == "" {
			return fmt.Errorf("persona %s has no system prompt", id)
		}
		if p.Voice == "" {
			return fmt.Errorf("persona %s has no voice", id)
		}
	}
	return nil
}

package handlers

import (
	"sync"

	"github.com/RainyAlgorithms/visionbuddy/models"
)

// SessionState is the per-session conversational state: active language,
// navigation target, the last narrated scene, and the user's reported
// position. It is explicit injected state, owned by the session and written
// only by the turn handler; the Idle gate serializes writers, the mutex
// keeps readers coherent.
type SessionState struct {
	mu         sync.Mutex
	language   models.Language
	navigation *models.NavigationState
	lastScene  string
	buildingID string
	position   models.Coordinates
}

func NewSessionState(buildingID string) *SessionState {
	return &SessionState{
		language:   models.LanguageEnglish,
		buildingID: buildingID,
	}
}

func (s *SessionState) Language() models.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

func (s *SessionState) SetLanguage(lang models.Language) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = lang
}

// Navigation returns a copy of the active navigation state, or nil when no
// target is set.
func (s *SessionState) Navigation() *models.NavigationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.navigation == nil {
		return nil
	}
	nav := *s.navigation
	return &nav
}

// SetNavigation replaces the navigation target. An empty target description
// is ignored: "no target" is expressed by ClearNavigation, never by an
// empty string.
func (s *SessionState) SetNavigation(nav models.NavigationState) {
	if nav.TargetDescription == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigation = &nav
}

func (s *SessionState) ClearNavigation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigation = nil
}

func (s *SessionState) LastScene() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScene
}

func (s *SessionState) SetLastScene(description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastScene = description
}

func (s *SessionState) BuildingID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildingID
}

func (s *SessionState) SetBuildingID(buildingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buildingID = buildingID
}

func (s *SessionState) Position() models.Coordinates {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *SessionState) SetPosition(pos models.Coordinates) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = pos
}

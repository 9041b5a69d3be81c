// Package memory provides an in-memory implementation of the engine's
// persistence interfaces, used in tests and for development servers.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tally/minijob-engine/engine"
)

// Store implements every engine store interface in memory.
// Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	rates      map[engine.UserID][]engine.HourlyRate
	settings   map[engine.UserID]engine.UserSettings
	entries    map[string]engine.TimeEntry
	minijob    []engine.MinijobSettings
	carryovers map[carryoverKey]engine.EarningsCarryover
}

type carryoverKey struct {
	UserID engine.UserID
	Year   int
	Month  int
}

func New() *Store {
	return &Store{
		rates:      make(map[engine.UserID][]engine.HourlyRate),
		settings:   make(map[engine.UserID]engine.UserSettings),
		entries:    make(map[string]engine.TimeEntry),
		carryovers: make(map[carryoverKey]engine.EarningsCarryover),
	}
}

// =============================================================================
// RATE HISTORY
// =============================================================================

func (s *Store) AppendRate(_ context.Context, rate engine.HourlyRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[rate.UserID] = append(s.rates[rate.UserID], rate)
	return nil
}

func (s *Store) UpdateRate(_ context.Context, rate engine.HourlyRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rates[rate.UserID] {
		if r.ID == rate.ID {
			s.rates[rate.UserID][i] = rate
			return nil
		}
	}
	return engine.ErrNotFound
}

func (s *Store) RatesByUser(_ context.Context, userID engine.UserID) ([]engine.HourlyRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]engine.HourlyRate, len(s.rates[userID]))
	copy(result, s.rates[userID])
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ValidFrom.After(result[j].ValidFrom)
	})
	return result, nil
}

// =============================================================================
// USER SETTINGS
// =============================================================================

func (s *Store) SettingsByUser(_ context.Context, userID engine.UserID) (engine.UserSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings, ok := s.settings[userID]
	if !ok {
		return engine.UserSettings{}, engine.ErrNotFound
	}
	return settings, nil
}

func (s *Store) SaveSettings(_ context.Context, settings engine.UserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[settings.UserID] = settings
	return nil
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

func (s *Store) AddEntry(_ context.Context, entry engine.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = entry
	return nil
}

func (s *Store) UpdateEntry(_ context.Context, entry engine.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.ID]; !ok {
		return engine.ErrNotFound
	}
	s.entries[entry.ID] = entry
	return nil
}

func (s *Store) DeleteEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return engine.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

func (s *Store) EntryByID(_ context.Context, id string) (engine.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return engine.TimeEntry{}, engine.ErrNotFound
	}
	return entry, nil
}

func (s *Store) EntriesByUser(_ context.Context, userID engine.UserID) ([]engine.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []engine.TimeEntry
	for _, e := range s.entries {
		if e.UserID == userID {
			result = append(result, e)
		}
	}
	sortEntries(result)
	return result, nil
}

func (s *Store) EntriesInRange(_ context.Context, userID engine.UserID, from, to engine.Date) ([]engine.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []engine.TimeEntry
	for _, e := range s.entries {
		if e.UserID == userID && e.WorkDate.AfterOrEqual(from) && e.WorkDate.BeforeOrEqual(to) {
			result = append(result, e)
		}
	}
	sortEntries(result)
	return result, nil
}

func (s *Store) EntriesOnDate(_ context.Context, userID engine.UserID, date engine.Date) ([]engine.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []engine.TimeEntry
	for _, e := range s.entries {
		if e.UserID == userID && e.WorkDate.Equal(date) {
			result = append(result, e)
		}
	}
	sortEntries(result)
	return result, nil
}

func sortEntries(entries []engine.TimeEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].WorkDate.Equal(entries[j].WorkDate) {
			return entries[i].WorkDate.Before(entries[j].WorkDate)
		}
		return entries[i].Start.Before(entries[j].Start)
	})
}

// =============================================================================
// MINIJOB SETTINGS
// =============================================================================

func (s *Store) ActiveSettings(_ context.Context) (engine.MinijobSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *engine.MinijobSettings
	for i := range s.minijob {
		rec := s.minijob[i]
		if !rec.Active {
			continue
		}
		if best == nil || rec.ValidFrom.After(best.ValidFrom) {
			best = &rec
		}
	}
	if best == nil {
		return engine.MinijobSettings{}, engine.ErrNotFound
	}
	return *best, nil
}

func (s *Store) SettingsForDate(_ context.Context, date engine.Date) (engine.MinijobSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *engine.MinijobSettings
	for i := range s.minijob {
		rec := s.minijob[i]
		if !rec.Covers(date) {
			continue
		}
		if best == nil || rec.ValidFrom.After(best.ValidFrom) {
			best = &rec
		}
	}
	if best == nil {
		return engine.MinijobSettings{}, engine.ErrNotFound
	}
	return *best, nil
}

func (s *Store) SettingsHistory(_ context.Context) ([]engine.MinijobSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]engine.MinijobSettings, len(s.minijob))
	copy(result, s.minijob)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ValidFrom.After(result[j].ValidFrom)
	})
	return result, nil
}

func (s *Store) AddSettings(_ context.Context, settings engine.MinijobSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minijob = append(s.minijob, settings)
	return nil
}

func (s *Store) UpdateSettings(_ context.Context, settings engine.MinijobSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range s.minijob {
		if rec.ID == settings.ID {
			s.minijob[i] = settings
			return nil
		}
	}
	return engine.ErrNotFound
}

// =============================================================================
// EARNINGS CARRYOVER
// =============================================================================

func (s *Store) Carryover(_ context.Context, userID engine.UserID, year, month int) (engine.EarningsCarryover, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.carryovers[carryoverKey{UserID: userID, Year: year, Month: month}]
	if !ok {
		return engine.EarningsCarryover{}, engine.ErrNotFound
	}
	return rec, nil
}

func (s *Store) SaveCarryover(_ context.Context, carryover engine.EarningsCarryover) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := carryoverKey{UserID: carryover.UserID, Year: carryover.Year, Month: carryover.Month}
	s.carryovers[key] = carryover
	return nil
}

func (s *Store) CarryoverHistory(_ context.Context, userID engine.UserID) ([]engine.EarningsCarryover, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []engine.EarningsCarryover
	for _, rec := range s.carryovers {
		if rec.UserID == userID {
			result = append(result, rec)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Year != result[j].Year {
			return result[i].Year > result[j].Year
		}
		return result[i].Month > result[j].Month
	})
	return result, nil
}

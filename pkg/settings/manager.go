package settings

import (
	"database/sql"
	"log"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const DbName = "./safetycar-bot.db"

type TelegramUser struct {
	ID     string
	Name   string
	ChatID string
}

// Manager owns the settings database: the single-row generator configuration
// and the deploy-notification subscriber list.
type Manager struct {
	db *sql.DB
	mu sync.Mutex
}

func NewManager(dbName string) (*Manager, error) {
	db, err := sql.Open("sqlite3", dbName)
	if err != nil {
		log.Printf("error opening database: %s\n", err)
		return nil, errors.Wrap(err, "opening settings database")
	}

	for _, stmt := range []string{buildCreateSettingsTable(), buildCreateSubscribersTable()} {
		if _, err := db.Exec(stmt); err != nil {
			log.Printf("error init database: %s\n", err)
			return nil, errors.Wrap(err, "initializing settings database")
		}
	}

	return &Manager{db: db}, nil
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.db.Close()
}

// Load returns the stored settings, falling back to defaults when none have
// been saved yet. The result is validated; an invalid stored row is an error
// so the generator never starts on it.
func (m *Manager) Load() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	query, read := buildSelectSettingsCommand()
	rows, err := m.db.Query(query)
	if err != nil {
		return Defaults(), errors.Wrap(err, "reading settings")
	}
	s, found, err := read(rows)
	if err != nil {
		return Defaults(), errors.Wrap(err, "scanning settings")
	}
	if !found {
		s = Defaults()
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Save validates and persists the settings.
func (m *Manager) Save(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.db.Exec(buildUpsertSettingsCommand(), upsertSettingsArgs(s)...)
	if err != nil {
		log.Printf("error updating database: %s\n", err)
		return errors.Wrap(err, "saving settings")
	}
	return nil
}

// ToggleDeploySubscription flips the deploy-notification flag for a user,
// creating the subscriber row when missing. Returns the new state.
func (m *Manager) ToggleDeploySubscription(userID, name, chatID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	enabled := 0
	row := m.db.QueryRow(buildSelectSubscriberEnabledCommand(), userID)
	if err := row.Scan(&enabled); err != nil && err != sql.ErrNoRows {
		return false, errors.Wrap(err, "reading subscriber")
	}

	next := 1 - enabled
	if _, err := m.db.Exec(buildUpsertSubscriberCommand(), userID, name, chatID, next); err != nil {
		log.Printf("error updating database: %s\n", err)
		return false, errors.Wrap(err, "updating subscriber")
	}
	return next == 1, nil
}

// ListDeploySubscribers returns the users to be notified when a safety car
// deploys.
func (m *Manager) ListDeploySubscribers() ([]TelegramUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	query, read := buildSelectSubscribersCommand()
	rows, err := m.db.Query(query)
	if err != nil {
		return []TelegramUser{}, errors.Wrap(err, "listing subscribers")
	}
	return read(rows)
}

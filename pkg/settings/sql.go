package settings

import (
	"database/sql"
	"fmt"
)

func buildCreateSettingsTable() string {
	return `CREATE TABLE IF NOT EXISTS generator_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		min_safety_cars INTEGER,
		max_safety_cars INTEGER,
		start_minute REAL,
		end_minute REAL,
		min_minutes_between REAL,
		random_enabled INTEGER,
		random_prob REAL,
		random_max_occ INTEGER,
		random_message TEXT,
		stopped_enabled INTEGER,
		stopped_threshold INTEGER,
		stopped_message TEXT,
		off_track_enabled INTEGER,
		off_track_threshold INTEGER,
		off_track_message TEXT,
		start_multiplier REAL,
		start_multiplier_seconds REAL,
		proximity_enabled INTEGER,
		proximity_distance REAL,
		laps_before_wave_arounds INTEGER,
		laps_under_safety_car INTEGER,
		auto_wave_arounds INTEGER);`
}

func buildCreateSubscribersTable() string {
	return `CREATE TABLE IF NOT EXISTS deploy_subscribers (
		userid TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		chatid TEXT NOT NULL,
		enabled INTEGER);`
}

func settingsFields() string {
	return `min_safety_cars, max_safety_cars, start_minute, end_minute, min_minutes_between,
		random_enabled, random_prob, random_max_occ, random_message,
		stopped_enabled, stopped_threshold, stopped_message,
		off_track_enabled, off_track_threshold, off_track_message,
		start_multiplier, start_multiplier_seconds,
		proximity_enabled, proximity_distance,
		laps_before_wave_arounds, laps_under_safety_car, auto_wave_arounds`
}

func buildSelectSettingsCommand() (string, func(*sql.Rows) (Settings, bool, error)) {
	return fmt.Sprintf(`SELECT %s FROM generator_settings WHERE id = 1`, settingsFields()), processSelectSettingsRows
}

func processSelectSettingsRows(rows *sql.Rows) (Settings, bool, error) {
	defer rows.Close()

	s := Defaults()
	if !rows.Next() {
		return s, false, rows.Err()
	}

	var randomEnabled, stoppedEnabled, offTrackEnabled, proximityEnabled, autoWave int
	err := rows.Scan(
		&s.MinSafetyCars, &s.MaxSafetyCars, &s.StartMinute, &s.EndMinute, &s.MinMinutesBetween,
		&randomEnabled, &s.RandomProb, &s.RandomMaxOcc, &s.RandomMessage,
		&stoppedEnabled, &s.StoppedCarsThreshold, &s.StoppedMessage,
		&offTrackEnabled, &s.OffTrackCarsThreshold, &s.OffTrackMessage,
		&s.StartMultiplier, &s.StartMultiplierSeconds,
		&proximityEnabled, &s.ProximityDistancePct,
		&s.LapsBeforeWaveArounds, &s.LapsUnderSafetyCar, &autoWave,
	)
	if err != nil {
		return s, false, err
	}
	s.RandomEnabled = randomEnabled == 1
	s.StoppedEnabled = stoppedEnabled == 1
	s.OffTrackEnabled = offTrackEnabled == 1
	s.ProximityEnabled = proximityEnabled == 1
	s.AutoWaveArounds = autoWave == 1
	return s, true, rows.Err()
}

func buildUpsertSettingsCommand() string {
	return fmt.Sprintf(`INSERT INTO generator_settings (id, %s)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		min_safety_cars=excluded.min_safety_cars,
		max_safety_cars=excluded.max_safety_cars,
		start_minute=excluded.start_minute,
		end_minute=excluded.end_minute,
		min_minutes_between=excluded.min_minutes_between,
		random_enabled=excluded.random_enabled,
		random_prob=excluded.random_prob,
		random_max_occ=excluded.random_max_occ,
		random_message=excluded.random_message,
		stopped_enabled=excluded.stopped_enabled,
		stopped_threshold=excluded.stopped_threshold,
		stopped_message=excluded.stopped_message,
		off_track_enabled=excluded.off_track_enabled,
		off_track_threshold=excluded.off_track_threshold,
		off_track_message=excluded.off_track_message,
		start_multiplier=excluded.start_multiplier,
		start_multiplier_seconds=excluded.start_multiplier_seconds,
		proximity_enabled=excluded.proximity_enabled,
		proximity_distance=excluded.proximity_distance,
		laps_before_wave_arounds=excluded.laps_before_wave_arounds,
		laps_under_safety_car=excluded.laps_under_safety_car,
		auto_wave_arounds=excluded.auto_wave_arounds`, settingsFields())
}

func upsertSettingsArgs(s Settings) []any {
	return []any{
		s.MinSafetyCars, s.MaxSafetyCars, s.StartMinute, s.EndMinute, s.MinMinutesBetween,
		boolToInt(s.RandomEnabled), s.RandomProb, s.RandomMaxOcc, s.RandomMessage,
		boolToInt(s.StoppedEnabled), s.StoppedCarsThreshold, s.StoppedMessage,
		boolToInt(s.OffTrackEnabled), s.OffTrackCarsThreshold, s.OffTrackMessage,
		s.StartMultiplier, s.StartMultiplierSeconds,
		boolToInt(s.ProximityEnabled), s.ProximityDistancePct,
		s.LapsBeforeWaveArounds, s.LapsUnderSafetyCar, boolToInt(s.AutoWaveArounds),
	}
}

func buildSelectSubscribersCommand() (string, func(*sql.Rows) ([]TelegramUser, error)) {
	return `SELECT userid, name, chatid FROM deploy_subscribers WHERE enabled = 1`, processSelectSubscribersRows
}

func processSelectSubscribersRows(rows *sql.Rows) ([]TelegramUser, error) {
	defer rows.Close()

	users := make([]TelegramUser, 0)
	for rows.Next() {
		var id string
		var name string
		var chatid string
		err := rows.Scan(&id, &name, &chatid)
		if err != nil {
			return users, err
		}
		users = append(users, TelegramUser{
			ID:     id,
			Name:   name,
			ChatID: chatid,
		})
	}
	return users, rows.Err()
}

func buildUpsertSubscriberCommand() string {
	return `INSERT INTO deploy_subscribers (userid, name, chatid, enabled)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(userid) DO UPDATE SET
		name=excluded.name, chatid=excluded.chatid, enabled=excluded.enabled`
}

func buildSelectSubscriberEnabledCommand() string {
	return `SELECT enabled FROM deploy_subscribers WHERE userid = ?`
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/mastercactapus/grblstream/grbl"
)

// Report is a stored status report.
type Report struct {
	ID        int64
	Timestamp time.Time
	State     string
	Fields    map[string]string
}

// Message is a stored message log line.
type Message struct {
	ID        int64
	Timestamp time.Time
	Text      string
}

// DB records the status reports and messages of a session in SQLite.
type DB struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		state TEXT NOT NULL,
		fields TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_reports_state ON reports(state);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON reports(timestamp);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		text TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db: db}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// InsertReport stores a status report received at ts.
func (d *DB) InsertReport(ts time.Time, rep *grbl.StatusReport) error {
	fieldsJSON, err := json.Marshal(rep.Fields)
	if err != nil {
		return err
	}
	_, err = d.db.Exec(`INSERT INTO reports (timestamp, state, fields) VALUES (?, ?, ?)`,
		ts.UTC().Format(time.RFC3339Nano), rep.State, string(fieldsJSON))
	return err
}

// InsertMessages stores message log lines taken at ts.
func (d *DB) InsertMessages(ts time.Time, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO messages (timestamp, text) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	tsStr := ts.UTC().Format(time.RFC3339Nano)
	for _, line := range lines {
		if _, err := stmt.Exec(tsStr, line); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Reports returns the most recent reports, newest first.
func (d *DB) Reports(limit int) ([]Report, error) {
	rows, err := d.db.Query(`
		SELECT id, timestamp, state, fields
		FROM reports
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var r Report
		var tsStr string
		var fieldsJSON sql.NullString
		if err := rows.Scan(&r.ID, &tsStr, &r.State, &fieldsJSON); err != nil {
			return nil, err
		}
		if r.Timestamp, err = time.Parse(time.RFC3339Nano, tsStr); err != nil {
			return nil, fmt.Errorf("report %d: timestamp: %w", r.ID, err)
		}
		if fieldsJSON.Valid {
			if err := json.Unmarshal([]byte(fieldsJSON.String), &r.Fields); err != nil {
				return nil, fmt.Errorf("report %d: fields: %w", r.ID, err)
			}
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// Messages returns the most recent message lines, newest first.
func (d *DB) Messages(limit int) ([]Message, error) {
	rows, err := d.db.Query(`
		SELECT id, timestamp, text FROM messages ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var tsStr string
		if err := rows.Scan(&m.ID, &tsStr, &m.Text); err != nil {
			return nil, err
		}
		if m.Timestamp, err = time.Parse(time.RFC3339Nano, tsStr); err != nil {
			return nil, fmt.Errorf("message %d: timestamp: %w", m.ID, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// StateCounts returns the number of reports per machine state.
func (d *DB) StateCounts() (map[string]int, error) {
	rows, err := d.db.Query(`SELECT state, COUNT(*) FROM reports GROUP BY state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		counts[state] = count
	}
	return counts, rows.Err()
}

// Source is the part of an engine a Recorder reads from.
type Source interface {
	Updates() <-chan *grbl.StatusReport
	TakeMessages() []string
}

// Recorder copies reports and messages from a Source into a DB.
type Recorder struct {
	DB *DB

	// Interval between message log drains.
	Interval time.Duration

	// Tee, if set, receives every message line after it is stored.
	Tee func(string)

	Log zerolog.Logger
}

// Run records until ctx is done or the source's update channel is closed.
// Storage errors are logged and do not stop recording.
func (r *Recorder) Run(ctx context.Context, src Source) {
	interval := r.Interval
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	drain := func() {
		lines := src.TakeMessages()
		if err := r.DB.InsertMessages(time.Now(), lines); err != nil {
			r.Log.Warn().Err(err).Msg("record messages")
		}
		if r.Tee != nil {
			for _, line := range lines {
				r.Tee(line)
			}
		}
	}
	defer drain()

	updates := src.Updates()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			drain()
		case rep, ok := <-updates:
			if !ok {
				return
			}
			if err := r.DB.InsertReport(time.Now(), rep); err != nil {
				r.Log.Warn().Err(err).Msg("record report")
			}
		}
	}
}

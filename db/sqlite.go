package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

// InitDB opens the SQLite database and creates the schema.
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        cortisol REAL NOT NULL,
        estrogen REAL NOT NULL,
        testosterone REAL NOT NULL,
        status TEXT NOT NULL,
        confidence REAL NOT NULL,
        recommendation TEXT,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        samples INTEGER NOT NULL,
        accuracy REAL NOT NULL,
        trees INTEGER NOT NULL,
        trained_at DATETIME NOT NULL
    );
    `
	_, err = database.Exec(query)
	return err
}

func Close() error {
	if database == nil {
		return nil
	}
	return database.Close()
}

// PredictionRecord is one stored classification.
type PredictionRecord struct {
	ID             int64     `json:"id"`
	Cortisol       float64   `json:"cortisol"`
	Estrogen       float64   `json:"estrogen"`
	Testosterone   float64   `json:"testosterone"`
	Status         string    `json:"status"`
	Confidence     float64   `json:"confidence"`
	Recommendation string    `json:"recommendation"`
	CreatedAt      time.Time `json:"created_at"`
}

func SavePrediction(record PredictionRecord) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	_, err := database.Exec(
		`INSERT INTO predictions (cortisol, estrogen, testosterone, status, confidence, recommendation, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.Cortisol, record.Estrogen, record.Testosterone,
		record.Status, record.Confidence, record.Recommendation, time.Now(),
	)
	return err
}

func QueryPredictions(limit int) ([]PredictionRecord, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := database.Query(
		`SELECT id, cortisol, estrogen, testosterone, status, confidence, recommendation, created_at
         FROM predictions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0, limit)
	for rows.Next() {
		var record PredictionRecord
		err := rows.Scan(&record.ID, &record.Cortisol, &record.Estrogen, &record.Testosterone,
			&record.Status, &record.Confidence, &record.Recommendation, &record.CreatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// TrainingRun is one row of the training log.
type TrainingRun struct {
	ID        int64     `json:"id"`
	Samples   int       `json:"samples"`
	Accuracy  float64   `json:"accuracy"`
	Trees     int       `json:"trees"`
	TrainedAt time.Time `json:"trained_at"`
}

func SaveTrainingRun(run TrainingRun) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	_, err := database.Exec(
		`INSERT INTO training_log (samples, accuracy, trees, trained_at) VALUES (?, ?, ?, ?)`,
		run.Samples, run.Accuracy, run.Trees, run.TrainedAt,
	)
	return err
}

// Stats aggregates the stored prediction history.
type Stats struct {
	Total           int            `json:"total"`
	ByStatus        map[string]int `json:"by_status"`
	AvgCortisol     float64        `json:"avg_cortisol"`
	AvgEstrogen     float64        `json:"avg_estrogen"`
	AvgTestosterone float64        `json:"avg_testosterone"`
}

func QueryStats() (Stats, error) {
	stats := Stats{ByStatus: make(map[string]int)}
	if database == nil {
		return stats, errors.New("database not initialized")
	}

	rows, err := database.Query(`SELECT status, COUNT(*) FROM predictions GROUP BY status`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, err
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	if stats.Total > 0 {
		row := database.QueryRow(`SELECT AVG(cortisol), AVG(estrogen), AVG(testosterone) FROM predictions`)
		if err := row.Scan(&stats.AvgCortisol, &stats.AvgEstrogen, &stats.AvgTestosterone); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

package repository

import (
	"database/sql"
	"fmt"
	"time"

	"unframe/db"
	"unframe/model"
)

// TrackRepository defines the interface for catalog data operations.
type TrackRepository interface {
	CreateTrack(track *model.Track) (int64, error)
	GetTrackByID(id int64) (*model.Track, error)
	GetAllTracks() ([]*model.Track, error)
	GetTrackByAudioPath(audioPath string) (*model.Track, error)
	CountTracks() (int64, error)
	DeleteTrack(id int64) error
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	DB *sql.DB
}

// NewMySQLTrackRepository creates a new instance of mysqlTrackRepository.
func NewMySQLTrackRepository() TrackRepository {
	return &mysqlTrackRepository{DB: db.DB}
}

const trackColumns = "id, title, artist, audio_path, cover_path, description, tag, duration, created_at, updated_at"

func scanTrack(row interface{ Scan(...interface{}) error }) (*model.Track, error) {
	track := &model.Track{}
	err := row.Scan(&track.ID, &track.Title, &track.Artist, &track.AudioPath, &track.CoverPath,
		&track.Description, &track.Tag, &track.Duration, &track.CreatedAt, &track.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return track, nil
}

// CreateTrack adds a new track to the catalog.
func (r *mysqlTrackRepository) CreateTrack(track *model.Track) (int64, error) {
	query := `INSERT INTO tracks (title, artist, audio_path, cover_path, description, tag, duration, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := r.DB.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement for CreateTrack: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	res, err := stmt.Exec(track.Title, track.Artist, track.AudioPath, track.CoverPath,
		track.Description, track.Tag, track.Duration, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to execute CreateTrack: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateTrack: %w", err)
	}
	return id, nil
}

// GetTrackByID retrieves a track by its ID.
func (r *mysqlTrackRepository) GetTrackByID(id int64) (*model.Track, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE id = ?"
	track, err := scanTrack(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // track not found
		}
		return nil, fmt.Errorf("failed to scan track by ID %d: %w", id, err)
	}
	return track, nil
}

// GetAllTracks retrieves the full catalog, newest first. A stable sort
// key (created_at, then id) keeps the order deterministic across
// subscription bursts.
func (r *mysqlTrackRepository) GetAllTracks() ([]*model.Track, error) {
	query := "SELECT " + trackColumns + " FROM tracks ORDER BY created_at DESC, id DESC"
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track in GetAllTracks: %w", err)
		}
		tracks = append(tracks, track)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetAllTracks: %w", err)
	}

	return tracks, nil
}

// GetTrackByAudioPath retrieves a track by its audio object path. Used
// by the ingest watcher to skip files that were already published.
func (r *mysqlTrackRepository) GetTrackByAudioPath(audioPath string) (*model.Track, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE audio_path = ?"
	track, err := scanTrack(r.DB.QueryRow(query, audioPath))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan track by audio path %s: %w", audioPath, err)
	}
	return track, nil
}

// CountTracks returns the catalog size.
func (r *mysqlTrackRepository) CountTracks() (int64, error) {
	var count int64
	if err := r.DB.QueryRow("SELECT COUNT(*) FROM tracks").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return count, nil
}

// DeleteTrack removes a track from the catalog.
func (r *mysqlTrackRepository) DeleteTrack(id int64) error {
	stmt, err := r.DB.Prepare("DELETE FROM tracks WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare statement for DeleteTrack: %w", err)
	}
	defer stmt.Close()

	if _, err := stmt.Exec(id); err != nil {
		return fmt.Errorf("failed to execute DeleteTrack for track ID %d: %w", id, err)
	}
	return nil
}

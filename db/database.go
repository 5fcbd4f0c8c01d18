package db

import (
	"database/sql"
	"fmt"
	"log"

	"unframe/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't
// exist, and seeds the catalog on an empty install.
func InitDB() error {
	if err := createUsersTable(); err != nil {
		return err
	}
	if err := createTracksTable(); err != nil {
		return err
	}
	if err := seedCatalog(); err != nil {
		return err
	}

	log.Println("Database initialization completed.")
	return nil
}

func createUsersTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(100) NOT NULL UNIQUE,
		email VARCHAR(255) UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		is_anonymous BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	);
	`
	_, err := DB.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	log.Println("Users table initialized successfully (or already exists).")
	return nil
}

func createTracksTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS tracks (
		id INT AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		artist VARCHAR(255),
		audio_path VARCHAR(767) NOT NULL,
		cover_path VARCHAR(767),
		description TEXT,
		tag VARCHAR(64),
		duration FLOAT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT uq_audio_path UNIQUE (audio_path)
	);
	`
	_, err := DB.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create tracks table: %w", err)
	}
	log.Println("Tracks table initialized successfully (or already exists).")
	return nil
}

// seedCatalog inserts the three launch Unframe artifacts when the
// catalog is completely empty, so a fresh install has something to play.
func seedCatalog() error {
	var count int
	if err := DB.QueryRow("SELECT COUNT(*) FROM tracks").Scan(&count); err != nil {
		return fmt.Errorf("failed to count tracks for seeding: %w", err)
	}
	if count > 0 {
		return nil
	}

	seeds := []struct {
		title, artist, audioPath, coverPath, description, tag string
	}{
		{
			title:       "서늘한 온기",
			artist:      "Unframe Playlist #1",
			audioPath:   "audio/unframe-01.mp3",
			coverPath:   "covers/unframe-01.png",
			description: "전시장의 차가운 공기와 그 속에 머무는 미세한 온기를 소리로 치환했습니다.",
			tag:         "Ambient",
		},
		{
			title:       "푸른 잔향",
			artist:      "Unframe Playlist #2",
			audioPath:   "audio/unframe-02.mp3",
			coverPath:   "covers/unframe-02.png",
			description: "푸른색 캔버스 위로 흐르는 잔잔한 파동을 닮은 앰비언트 사운드입니다.",
			tag:         "Electronic",
		},
		{
			title:       "오후의 도록",
			artist:      "Unframe Playlist #3",
			audioPath:   "audio/unframe-03.mp3",
			coverPath:   "covers/unframe-03.png",
			description: "오후의 햇살이 비치는 전시실에서 도록을 넘기는 듯한 평온한 리듬.",
			tag:         "Minimal",
		},
	}

	for _, s := range seeds {
		_, err := DB.Exec(
			"INSERT INTO tracks (title, artist, audio_path, cover_path, description, tag) VALUES (?, ?, ?, ?, ?, ?)",
			s.title, s.artist, s.audioPath, s.coverPath, s.description, s.tag)
		if err != nil {
			return fmt.Errorf("failed to seed track %q: %w", s.title, err)
		}
	}
	log.Printf("Seeded %d catalog tracks.", len(seeds))
	return nil
}

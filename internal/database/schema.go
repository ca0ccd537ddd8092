package database

import (
	"context"
	"database/sql"
	"fmt"
)

const tableOpts = ` ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`

// Schema lists the DDL in dependency order. Every statement is guarded by
// IF NOT EXISTS so EnsureSchema can run against an initialised store.
//
// Structural children (seasons, episodes, cast, genre links) cascade with
// their parent title. User content (reviews, watchlist, comments) restricts
// deletion of the title or user it references.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		handle        VARCHAR(64)  NOT NULL,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_email (email)
	)` + tableOpts,

	// binary collation: genre names match case-sensitively
	`CREATE TABLE IF NOT EXISTS genres (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		tmdb_genre_id INT NULL,
		name          VARCHAR(100) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_genres_name (name),
		KEY idx_genres_tmdb (tmdb_genre_id)
	)` + tableOpts,

	`CREATE TABLE IF NOT EXISTS people (
		id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		tmdb_person_id BIGINT NOT NULL,
		name           VARCHAR(255) NOT NULL,
		profile_path   VARCHAR(255) NULL,
		biography      TEXT NULL,
		birthday       DATE NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_people_tmdb (tmdb_person_id)
	)` + tableOpts,

	`CREATE TABLE IF NOT EXISTS movies (
		id                BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		tmdb_id           BIGINT NOT NULL,
		title             VARCHAR(255) NOT NULL,
		overview          TEXT NULL,
		release_date      DATE NULL,
		runtime_min       INT NULL,
		poster_path       VARCHAR(255) NULL,
		backdrop_path     VARCHAR(255) NULL,
		popularity        DOUBLE NOT NULL DEFAULT 0,
		vote_average      DOUBLE NOT NULL DEFAULT 0,
		vote_count        INT NOT NULL DEFAULT 0,
		original_language VARCHAR(16) NULL,
		created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_movies_tmdb (tmdb_id),
		KEY idx_movies_popularity (popularity),
		KEY idx_movies_release (release_date)
	)` + tableOpts,

	`CREATE TABLE IF NOT EXISTS shows (
		id                BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		tmdb_id           BIGINT NOT NULL,
		title             VARCHAR(255) NOT NULL,
		overview          TEXT NULL,
		first_air_date    DATE NULL,
		last_air_date     DATE NULL,
		number_of_seasons INT NULL,
		poster_path       VARCHAR(255) NULL,
		backdrop_path     VARCHAR(255) NULL,
		popularity        DOUBLE NOT NULL DEFAULT 0,
		vote_average      DOUBLE NOT NULL DEFAULT 0,
		vote_count        INT NOT NULL DEFAULT 0,
		original_language VARCHAR(16) NULL,
		created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_shows_tmdb (tmdb_id),
		KEY idx_shows_popularity (popularity),
		KEY idx_shows_first_air (first_air_date)
	)` + tableOpts,

	`CREATE TABLE IF NOT EXISTS seasons (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		show_id       BIGINT UNSIGNED NOT NULL,
		season_number INT NOT NULL,
		name          VARCHAR(255) NULL,
		overview      TEXT NULL,
		air_date      DATE NULL,
		poster_path   VARCHAR(255) NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_seasons_show_number (show_id, season_number),
		CONSTRAINT fk_seasons_show FOREIGN KEY (show_id) REFERENCES shows (id) ON DELETE CASCADE
	)` + tableOpts,

	`CREATE TABLE IF NOT EXISTS episodes (
		id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		season_id      BIGINT UNSIGNED NOT NULL,
		episode_number INT NOT NULL,
		name           VARCHAR(255) NULL,
		overview       TEXT NULL,
		air_date       DATE NULL,
		runtime_min    INT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_episodes_season_number (season_id, episode_number),
		CONSTRAINT fk_episodes_season FOREIGN KEY (season_id) REFERENCES seasons (id) ON DELETE CASCADE
	)` + tableOpts,

	`CREATE TABLE IF NOT EXISTS movie_genres (
		movie_id BIGINT UNSIGNED NOT NULL,
		genre_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (movie_id, genre_id),
		KEY idx_movie_genres_genre (genre_id),
		CONSTRAINT fk_movie_genres_movie FOREIGN KEY (movie_id) REFERENCES movies (id) ON DELETE CASCADE,
		CONSTRAINT fk_movie_genres_genre FOREIGN KEY (genre_id) REFERENCES genres (id) ON DELETE CASCADE
	)` + tableOpts,

	`CREATE TABLE IF NOT EXISTS show_genres (
		show_id  BIGINT UNSIGNED NOT NULL,
		genre_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (show_id, genre_id),
		KEY idx_show_genres_genre (genre_id),
		CONSTRAINT fk_show_genres_show FOREIGN KEY (show_id) REFERENCES shows (id) ON DELETE CASCADE,
		CONSTRAINT fk_show_genres_genre FOREIGN KEY (genre_id) REFERENCES genres (id) ON DELETE CASCADE
	)` + tableOpts,

	`CREATE TABLE IF NOT EXISTS movie_cast (
		id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		movie_id       BIGINT UNSIGNED NOT NULL,
		person_id      BIGINT UNSIGNED NOT NULL,
		character_name VARCHAR(255) NOT NULL DEFAULT '',
		cast_order     INT NOT NULL DEFAULT 0,
		PRIMARY KEY (id),
		UNIQUE KEY uq_movie_cast (movie_id, person_id, character_name),
		CONSTRAINT fk_movie_cast_movie FOREIGN KEY (movie_id) REFERENCES movies (id) ON DELETE CASCADE,
		CONSTRAINT fk_movie_cast_person FOREIGN KEY (person_id) REFERENCES people (id) ON DELETE CASCADE
	)` + tableOpts,

	`CREATE TABLE IF NOT EXISTS show_cast (
		id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		show_id        BIGINT UNSIGNED NOT NULL,
		person_id      BIGINT UNSIGNED NOT NULL,
		character_name VARCHAR(255) NOT NULL DEFAULT '',
		cast_order     INT NOT NULL DEFAULT 0,
		PRIMARY KEY (id),
		UNIQUE KEY uq_show_cast (show_id, person_id, character_name),
		CONSTRAINT fk_show_cast_show FOREIGN KEY (show_id) REFERENCES shows (id) ON DELETE CASCADE,
		CONSTRAINT fk_show_cast_person FOREIGN KEY (person_id) REFERENCES people (id) ON DELETE CASCADE
	)` + tableOpts,

	`CREATE TABLE IF NOT EXISTS reviews (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id    BIGINT UNSIGNED NOT NULL,
		movie_id   BIGINT UNSIGNED NULL,
		show_id    BIGINT UNSIGNED NULL,
		rating     DECIMAL(3,1) NOT NULL,
		body       TEXT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_reviews_user_movie (user_id, movie_id),
		UNIQUE KEY uq_reviews_user_show (user_id, show_id),
		CONSTRAINT fk_reviews_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE RESTRICT,
		CONSTRAINT fk_reviews_movie FOREIGN KEY (movie_id) REFERENCES movies (id) ON DELETE RESTRICT,
		CONSTRAINT fk_reviews_show FOREIGN KEY (show_id) REFERENCES shows (id) ON DELETE RESTRICT,
		CONSTRAINT chk_reviews_rating CHECK (rating >= 0 AND rating <= 10),
		CONSTRAINT chk_reviews_subject CHECK ((movie_id IS NULL) <> (show_id IS NULL))
	)` + tableOpts,

	`CREATE TABLE IF NOT EXISTS watchlist_entries (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id    BIGINT UNSIGNED NOT NULL,
		movie_id   BIGINT UNSIGNED NULL,
		show_id    BIGINT UNSIGNED NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_watchlist_user_movie (user_id, movie_id),
		UNIQUE KEY uq_watchlist_user_show (user_id, show_id),
		CONSTRAINT fk_watchlist_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE RESTRICT,
		CONSTRAINT fk_watchlist_movie FOREIGN KEY (movie_id) REFERENCES movies (id) ON DELETE RESTRICT,
		CONSTRAINT fk_watchlist_show FOREIGN KEY (show_id) REFERENCES shows (id) ON DELETE RESTRICT,
		CONSTRAINT chk_watchlist_subject CHECK ((movie_id IS NULL) <> (show_id IS NULL))
	)` + tableOpts,

	`CREATE TABLE IF NOT EXISTS comments (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id    BIGINT UNSIGNED NOT NULL,
		movie_id   BIGINT UNSIGNED NULL,
		show_id    BIGINT UNSIGNED NULL,
		parent_id  BIGINT UNSIGNED NULL,
		body       TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_comments_movie (movie_id, created_at),
		KEY idx_comments_show (show_id, created_at),
		CONSTRAINT fk_comments_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE RESTRICT,
		CONSTRAINT fk_comments_movie FOREIGN KEY (movie_id) REFERENCES movies (id) ON DELETE RESTRICT,
		CONSTRAINT fk_comments_show FOREIGN KEY (show_id) REFERENCES shows (id) ON DELETE RESTRICT,
		CONSTRAINT fk_comments_parent FOREIGN KEY (parent_id) REFERENCES comments (id) ON DELETE CASCADE,
		CONSTRAINT chk_comments_subject CHECK ((movie_id IS NULL) <> (show_id IS NULL))
	)` + tableOpts,

	`CREATE TABLE IF NOT EXISTS etl_runs (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		run_uuid      CHAR(36) NOT NULL,
		kinds         VARCHAR(32) NOT NULL,
		pages         INT NOT NULL,
		status        VARCHAR(16) NOT NULL,
		inserted      INT NOT NULL DEFAULT 0,
		updated       INT NOT NULL DEFAULT 0,
		skipped       INT NOT NULL DEFAULT 0,
		failed        INT NOT NULL DEFAULT 0,
		pages_failed  INT NOT NULL DEFAULT 0,
		error_message TEXT NULL,
		started_at    DATETIME NOT NULL,
		finished_at   DATETIME NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_etl_runs_uuid (run_uuid),
		KEY idx_etl_runs_started (started_at)
	)` + tableOpts,

	`CREATE TABLE IF NOT EXISTS etl_errors (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		run_uuid    CHAR(36) NOT NULL,
		kind        VARCHAR(8) NOT NULL,
		page        INT NOT NULL,
		external_id BIGINT NULL,
		reason      VARCHAR(500) NOT NULL,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_etl_errors_created (created_at),
		CONSTRAINT fk_etl_errors_run FOREIGN KEY (run_uuid) REFERENCES etl_runs (run_uuid) ON DELETE CASCADE
	)` + tableOpts,
}

// EnsureSchema creates every missing table in order. Existing tables are left
// untouched.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, Classify(err))
		}
	}
	return nil
}

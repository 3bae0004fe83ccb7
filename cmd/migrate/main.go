// cmd/migrate/main.go
// Migrates horses and their history from the legacy MySQL trackData
// database into the local PostgreSQL database. Times are re-derived from
// the stored display strings on the way in.
//
// Usage:
//
//	MYSQL_DSN="user:pass@tcp(host:3306)/trackData?parseTime=true" \
//	DB_PASS="pgpass" \
//	go run ./cmd/migrate
package main

import (
	"context"
	"database/sql"
	"log"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"

	"github.com/padraicbc/chartapi/chart"
	"github.com/padraicbc/chartapi/config"
	bundb "github.com/padraicbc/chartapi/db"
	"github.com/padraicbc/chartapi/models"
	"github.com/padraicbc/chartapi/registry"
)

const batchSize = 500

func main() {
	ctx := context.Background()

	cfg := config.Load()

	if cfg.MySQLDSN == "" {
		log.Fatal("MYSQL_DSN required, e.g.: user:pass@tcp(host:3306)/trackData?parseTime=true")
	}
	myDB, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("open mysql: %v", err)
	}
	defer myDB.Close()
	myDB.SetMaxOpenConns(4)
	if err := myDB.PingContext(ctx); err != nil {
		log.Fatalf("ping mysql: %v", err)
	}
	log.Println("connected to MySQL")

	pgDB := bundb.Setup(cfg)
	defer pgDB.Close()
	log.Println("connected to PostgreSQL")

	if err := bundb.CreateTables(ctx, pgDB); err != nil {
		log.Fatalf("create tables: %v", err)
	}

	store := registry.NewBunStore(pgDB)

	ids, err := migrateHorses(ctx, myDB, store)
	if err != nil {
		log.Fatalf("migrate horses: %v", err)
	}
	log.Printf("migrated %d horses", len(ids))

	n, err := migrateHistory(ctx, myDB, pgDB, ids)
	if err != nil {
		log.Fatalf("migrate history: %v", err)
	}
	log.Printf("migrated %d history entries", n)
}

// migrateHorses copies registry rows and returns legacy name -> new id.
func migrateHorses(ctx context.Context, myDB *sql.DB, store *registry.BunStore) (map[string]int, error) {
	rows, err := myDB.QueryContext(ctx,
		`SELECT horse, IFNULL(owner,''), IFNULL(country,''), IFNULL(historic,0) FROM horses`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := map[string]int{}
	for rows.Next() {
		var name, owner, country string
		var historic bool
		if err := rows.Scan(&name, &owner, &country, &historic); err != nil {
			return nil, err
		}
		h := &models.Horse{
			Name:     strings.TrimSpace(name),
			Owner:    owner,
			Country:  country,
			Historic: historic,
			Aliases:  []string{},
		}
		if err := store.InsertHorse(ctx, h); err != nil {
			if err == registry.ErrNameTaken {
				log.Printf("skipping duplicate horse %q", h.Name)
				continue
			}
			return nil, err
		}
		ids[strings.ToLower(h.Name)] = h.HorseID
	}
	return ids, rows.Err()
}

// migrateHistory copies race rows in batches, re-deriving seconds, speed
// and pace from the stored display time.
func migrateHistory(ctx context.Context, myDB *sql.DB, pgDB *bun.DB, ids map[string]int) (int, error) {
	rows, err := myDB.QueryContext(ctx, `
		SELECT horse, DATE_FORMAT(date, '%Y-%m-%d'), IFNULL(track,''), IFNULL(surface,'D'),
		       IFNULL(distance,0), IFNULL(class,''), IFNULL(final_time,''),
		       IFNULL(positions,''), IFNULL(comment,'')
		FROM results ORDER BY horse, date`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	total := 0
	batch := make([]models.HistoryEntry, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := pgDB.NewInsert().Model(&batch).
			On("CONFLICT (horse_id, date, track) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for rows.Next() {
		var horse, date, track, surface, class, finalTime, positions, comment string
		var distance float64
		if err := rows.Scan(&horse, &date, &track, &surface, &distance, &class,
			&finalTime, &positions, &comment); err != nil {
			return total, err
		}

		id, ok := ids[strings.ToLower(strings.TrimSpace(horse))]
		if !ok {
			log.Printf("no registry entry for %q, skipping row", horse)
			continue
		}

		secs := chart.ParseSeconds(finalTime)
		batch = append(batch, models.HistoryEntry{
			HorseID:      id,
			Kind:         models.EntryRace,
			Date:         date,
			Track:        track,
			Surface:      surface,
			Distance:     distance,
			Class:        class,
			FinalTime:    finalTime,
			FinalSeconds: secs,
			AvgSpeed:     chart.AvgSpeedMPH(distance, secs),
			PaceFive:     chart.FiveFurlongPace(distance, secs),
			Positions:    parsePositions(positions),
			Comment:      comment,
		})
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, rows.Err()
}

// parsePositions reads the legacy comma-separated call positions.
func parsePositions(s string) []int64 {
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if v, err := strconv.ParseInt(part, 10, 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}

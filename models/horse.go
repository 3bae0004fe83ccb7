package models

import "github.com/uptrace/bun"

// Horse is the canonical registry entry for one horse. Every alias in
// Aliases belongs to this entry and no other; merge/rename/unmerge keep
// that partition intact.
type Horse struct {
	bun.BaseModel `bun:"table:horses,alias:h"`

	HorseID  int      `bun:"horse_id,pk,autoincrement" json:"horseID"`
	Name     string   `bun:"name,notnull,unique" json:"name"`
	Owner    string   `bun:"owner,notnull,default:''" json:"owner"`
	Country  string   `bun:"country,notnull,default:''" json:"country"`
	Historic bool     `bun:"historic,notnull,default:false" json:"historic"`
	Aliases  []string `bun:"aliases,array" json:"aliases"`

	// Version guards read-modify-write sequences against the registry.
	Version int64 `bun:"version,notnull,default:0" json:"version"`

	// Summary fields, recomputed on commit for touched horses only.
	Starts       int      `bun:"starts,notnull,default:0" json:"starts"`
	LastRaceDate *string  `bun:"last_race_date,type:date" json:"lastRaceDate,omitempty"`
	BestPaceFive *float64 `bun:"best_pace_five" json:"bestPaceFive,omitempty"`
}

package models

import "github.com/uptrace/bun"

// History entry kinds. Race entries come from chart ingestion; training
// and note entries are written through the manual-entry surface.
const (
	EntryRace     = "race"
	EntryTraining = "training"
	EntryNote     = "note"
)

// HistoryEntry is one dated line in a horse's training history. At most
// one entry per (horse, date, track) may exist.
type HistoryEntry struct {
	bun.BaseModel `bun:"table:history,alias:he"`

	ID      int    `bun:"id,pk,autoincrement" json:"id"`
	HorseID int    `bun:"horse_id,notnull" json:"horseID"`
	Kind    string `bun:"kind,notnull,default:'race'" json:"kind"`
	Date    string `bun:"date,notnull,type:date" json:"date"`
	Track   string `bun:"track,notnull,default:''" json:"track"`

	Surface  string  `bun:"surface,notnull,default:'D'" json:"surface"`
	Distance float64 `bun:"distance,notnull,default:0" json:"distance"`
	Class    string  `bun:"class,notnull,default:''" json:"class"`

	// FinalTime is the display string ("1:10.45"); FinalSeconds, AvgSpeed
	// and PaceFive are derived from it on write, never edited directly.
	FinalTime    string  `bun:"final_time,notnull,default:''" json:"finalTime"`
	FinalSeconds float64 `bun:"final_seconds,notnull,default:0" json:"finalSeconds"`
	AvgSpeed     float64 `bun:"avg_speed,notnull,default:0" json:"avgSpeed"`
	PaceFive     float64 `bun:"pace_five,notnull,default:0" json:"paceFive"`

	Positions []int64 `bun:"positions,array" json:"positions"`
	Comment   string  `bun:"comment,notnull,default:''" json:"comment"`
}

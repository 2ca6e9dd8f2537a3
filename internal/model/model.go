package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Anchor{},
}

// Anchor is a persisted anchor placement.
// Location is stored as EPSG:3857 WKB so both SQLite and PostGIS can read it back.
type Anchor struct {
	ID          string         `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt   time.Time      `json:"createdAt" gorm:"autoCreateTime;index"`
	Latitude    float64        `json:"latitude"`
	Longitude   float64        `json:"longitude"`
	Altitude    float64        `json:"altitude"`
	Heading     float64        `json:"heading"`
	Location    geom.Point     `json:"location"`
	Orientation datatypes.JSON `json:"orientation"`
}

func (*Anchor) TableName() string {
	return "anchors"
}

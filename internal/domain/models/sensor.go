package models

import "time"

// SensorReading is a field measurement produced by the ingestion pipeline.
type SensorReading struct {
	ID           string    `bson:"_id" json:"id"`
	FieldID      string    `bson:"field_id" json:"fieldId"`
	Timestamp    time.Time `bson:"timestamp" json:"timestamp"`
	Temperature  float64   `bson:"temperature" json:"temperature"`
	Humidity     float64   `bson:"humidity" json:"humidity"`
	SoilMoisture float64   `bson:"soil_moisture" json:"soilMoisture"`
	SoilPh       float64   `bson:"soil_ph" json:"soilPh"`
}

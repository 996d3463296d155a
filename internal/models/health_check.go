package models

import "time"

type HealthCheck struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Services  map[string]string      `json:"services"`
	Queue     map[string]interface{} `json:"queue,omitempty"`
}

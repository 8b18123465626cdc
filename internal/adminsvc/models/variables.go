package models

import (
	"time"
)

// Variables represents a row of the variables table.
type Variables struct {
	ID          string    `json:"id" bson:"_id"`
	VariableOne string    `json:"variable_1" bson:"variable_1"`
	VariableTwo string    `json:"variable_2" bson:"variable_2"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// VariablesInput holds the columns a client may set on insert.
type VariablesInput struct {
	VariableOne string `json:"variable_1" bson:"variable_1"`
	VariableTwo string `json:"variable_2" bson:"variable_2"`
}

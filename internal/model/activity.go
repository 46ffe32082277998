package model

import "time"

type ActivityEntry struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	ActorID   int64     `json:"actor_id"`
	SubjectID int64     `json:"subject_id"`
	TargetID  *int64    `json:"target_id"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

package pkg

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies which simulated party authored a turn.  Only two roles
// exist: the patient and the doctor.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// Label returns the capitalised role name used in rendered transcripts.
func (r Role) Label() string {
	switch r {
	case RolePatient:
		return "Patient"
	case RoleDoctor:
		return "Doctor"
	}
	return string(r)
}

// Turn is one utterance in a simulated consultation.  Turns are never
// modified after they are appended to a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transcript is the finalised, ordered list of turns for one conversation.
type Transcript struct {
	ID        uuid.UUID `json:"id"`
	Question  string    `json:"question"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
}

// Record is a single work item for the CoT generator.  PatientDetail seeds
// the first patient turn and DoctorReply is the reference reply whose style
// the simulated doctor imitates.
type Record struct {
	Question      string `json:"question"`
	PatientDetail string `json:"patient_detail"`
	DoctorReply   string `json:"doctor_reply"`
}

// CoTResult is returned for every processed Record.  CoT holds the turn
// contents in dialogue order.
type CoTResult struct {
	Question string   `json:"question"`
	CoT      []string `json:"cot"`
}

// Chunk is one row of source text for question generation.
type Chunk struct {
	ID   int64  `json:"id"`
	Text string `json:"chunk_text"`
}

// GeneratedQuestion is a question derived from a chunk.
type GeneratedQuestion struct {
	ChunkID  int64  `json:"chunk_id"`
	Question string `json:"question"`
}

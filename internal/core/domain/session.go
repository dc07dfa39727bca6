package domain

import "time"

type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a session transcript. Turns are append-only and
// ordered by Seq within a session.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Seq       int       `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
}

// Session binds one user conversation to exactly one selected regulation
// document. Restarting the selection replaces the source and clears the
// transcript.
type Session struct {
	ID          string    `json:"id"`
	Faculty     string    `json:"faculty"`
	ProgramType string    `json:"program_type"`
	Course      string    `json:"course"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Prompt is the structured input of a language-model call: a system
// instruction, the prior turns, and the single current input.
type Prompt struct {
	System  string
	History []Turn
	Input   string
}

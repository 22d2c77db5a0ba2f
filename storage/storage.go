package storage

import (
	"Painter/core"
	"errors"
	"time"
)

// Awaiting tells which input the next free-text message fills
type Awaiting string

const (
	AwaitingNone     Awaiting = ""
	AwaitingPositive Awaiting = "positive"
	AwaitingNegative Awaiting = "negative"
	AwaitingStyle    Awaiting = "style"
	AwaitingGenerate Awaiting = "generate"
)

type Field string

const (
	FieldPositive Field = "positive_request"
	FieldNegative Field = "negative_request"
	FieldStyle    Field = "style"
	FieldAwaiting Field = "awaiting"
)

var ErrUnknownField = errors.New("unknown session field")

type Session struct {
	UserId          int64      `bson:"user_id"`
	PositiveRequest string     `bson:"positive_request"`
	NegativeRequest string     `bson:"negative_request"`
	Style           core.Style `bson:"style"`
	Awaiting        Awaiting   `bson:"awaiting"`
	UpdatedAt       time.Time  `bson:"updated_at"`
}

func NewSession(userId int64) *Session {
	return &Session{
		UserId:    userId,
		Style:     core.StyleDefault,
		UpdatedAt: time.Now(),
	}
}

// Set changes a single field in place
func (s *Session) Set(field Field, value string) error {
	switch field {
	case FieldPositive:
		s.PositiveRequest = value
	case FieldNegative:
		s.NegativeRequest = value
	case FieldStyle:
		s.Style = core.Style(value)
	case FieldAwaiting:
		s.Awaiting = Awaiting(value)
	default:
		return ErrUnknownField
	}
	return nil
}

// ReadyToGenerate reports whether /generate may run
func (s *Session) ReadyToGenerate() bool {
	return s.PositiveRequest != "" && s.Awaiting == AwaitingGenerate
}

// SessionStore keeps exactly one session per user id; every call is atomic
type SessionStore interface {
	// Get returns a copy of the session, or a default one if the user has none
	Get(userId int64) (*Session, error)
	// Reset creates or overwrites the session with defaults
	Reset(userId int64) (*Session, error)
	SetField(userId int64, field Field, value string) (*Session, error)
	// SetFields applies all values in one step
	SetFields(userId int64, values map[Field]string) (*Session, error)
	// Evict removes sessions not updated since olderThan
	Evict(olderThan time.Time) (int, error)
	Count() (int, error)
	Close() error
}

func validFields(values map[Field]string) error {
	probe := &Session{}
	for field, value := range values {
		if err := probe.Set(field, value); err != nil {
			return err
		}
	}
	return nil
}

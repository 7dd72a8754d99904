package contact

import (
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// Message is a submitted contact form entry
type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository persists contact messages. CreateMessage assigns ID and CreatedAt.
type Repository interface {
	CreateMessage(msg *Message) (*Message, error)
	ListMessages() ([]*Message, error)
}

// Request is the contact form payload
type Request struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,min=10,max=5000"`
}

// ValidationError lists the fields that failed validation
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "invalid contact message: " + strings.Join(parts, "; ")
}

// Service handles contact form submissions
type Service struct {
	repo      Repository
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
	logger    *zap.Logger
}

// NewService creates a new contact service
func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
	}
}

// Submit validates, sanitises and stores a message.
func (s *Service) Submit(req *Request) (*Message, error) {
	if req == nil {
		return nil, &ValidationError{Fields: map[string]string{"body": "required"}}
	}

	clean := Request{
		Name:    s.clean(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Subject: s.clean(req.Subject),
		Message: s.clean(req.Message),
	}
	if err := s.check(&clean); err != nil {
		return nil, err
	}

	msg, err := s.repo.CreateMessage(&Message{
		Name:    clean.Name,
		Email:   clean.Email,
		Subject: clean.Subject,
		Message: clean.Message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store contact message: %w", err)
	}

	s.logger.Info("Contact message received",
		zap.String("message_id", msg.ID),
		zap.String("email", msg.Email),
		zap.String("subject", msg.Subject),
	)
	return msg, nil
}

// List returns stored messages, newest first.
func (s *Service) List() ([]*Message, error) {
	msgs, err := s.repo.ListMessages()
	if err != nil {
		return nil, fmt.Errorf("failed to list contact messages: %w", err)
	}
	return msgs, nil
}

// maxCleanRounds bounds how many layers of entity encoding clean unwraps.
const maxCleanRounds = 5

// clean returns v as plain text with all markup stripped. StrictPolicy escapes
// entities, so its output is unescaped and sanitised again until it stops
// changing; otherwise encoded markup would decode into live tags.
func (s *Service) clean(v string) string {
	for range maxCleanRounds {
		next := html.UnescapeString(s.sanitizer.Sanitize(v))
		if next == v {
			return strings.TrimSpace(v)
		}
		v = next
	}
	// Still encoded after the last round: keep the escaped form.
	return strings.TrimSpace(s.sanitizer.Sanitize(v))
}

func (s *Service) check(req *Request) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate contact message: %w", err)
	}

	verr := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		verr.Fields[strings.ToLower(fe.Field())] = describe(fe)
	}
	return verr
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}

package lead

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/evcraddock/space-finder/internal/notify"
)

var (
	// ErrSchemaMismatch is returned when a record carries keys the lead
	// schema does not know. The caller's form and the server disagree.
	ErrSchemaMismatch = errors.New("lead schema mismatch")
	// ErrInvalid is returned when required values are missing or malformed.
	ErrInvalid = errors.New("invalid lead")
)

// Schema describes the answer keys a lead may carry.
type Schema struct {
	Keys     []string
	Required []string
	// Describe renders answers as labelled lines for emails. Optional.
	Describe func(answers map[string]string) []notify.Detail
}

func (s Schema) known(key string) bool {
	for _, k := range s.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Enqueuer accepts email requests for background delivery. *notify.Queue implements it.
type Enqueuer interface {
	Enqueue(req notify.Request) error
}

// Mirror copies a stored lead to a secondary store.
type Mirror interface {
	Mirror(ctx context.Context, l *Lead) error
}

// FollowUp hands a new lead to an outbound messaging channel (SMS, CRM task).
// Implementations must return quickly.
type FollowUp interface {
	FollowUp(ctx context.Context, l *Lead) error
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Schema      Schema
	Queue       Enqueuer // nil disables email
	FollowUp    FollowUp // optional
	Mirror      Mirror   // optional
	BrokerEmail string   // empty disables broker alerts
	Logger      *zap.Logger
}

// Service provides lead business logic.
type Service struct {
	repo   *Repository
	cfg    ServiceConfig
	logger *zap.Logger
	newRef func() string
}

// NewService creates a lead service.
func NewService(repo *Repository, cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		cfg:    cfg,
		logger: logger.Named("lead"),
		newRef: func() string { return ulid.Make().String() },
	}
}

// Validate cleans answers and checks them against the schema.
func (s *Service) Validate(answers map[string]string) (map[string]string, error) {
	clean := make(map[string]string, len(answers))
	var unknown []string
	for k, v := range answers {
		if !s.cfg.Schema.known(k) {
			unknown = append(unknown, k)
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			clean[k] = v
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: unknown fields %s", ErrSchemaMismatch, strings.Join(unknown, ", "))
	}

	var missing []string
	for _, k := range s.cfg.Schema.Required {
		if clean[k] == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalid, strings.Join(missing, ", "))
	}

	if email := clean[KeyEmail]; email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			return nil, fmt.Errorf("%w: invalid email address", ErrInvalid)
		}
	}

	return clean, nil
}

// Create validates answers, stores the lead and queues its notifications.
// Notification and follow-up failures are logged, never returned: the lead is
// already saved by then.
func (s *Service) Create(ctx context.Context, source Source, answers map[string]string) (*Lead, error) {
	if !ValidSource(string(source)) {
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalid, source)
	}
	clean, err := s.Validate(answers)
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.Insert(ctx, &Lead{
		Ref:          s.newRef(),
		Source:       source,
		Name:         clean[KeyName],
		Email:        clean[KeyEmail],
		Phone:        clean[KeyPhone],
		PropertyType: clean[KeyPropertyType],
		City:         clean[KeyCity],
		Answers:      clean,
	})
	if err != nil {
		return nil, fmt.Errorf("saving lead: %w", err)
	}

	s.logger.Info("lead created",
		zap.String("ref", saved.Ref),
		zap.String("source", string(saved.Source)),
		zap.String("property_type", saved.PropertyType),
		zap.String("city", saved.City),
	)

	if s.cfg.Mirror != nil {
		if err := s.cfg.Mirror.Mirror(ctx, saved); err != nil {
			s.logger.Warn("lead mirror failed", zap.String("ref", saved.Ref), zap.Error(err))
		}
	}
	s.notify(saved)
	if s.cfg.FollowUp != nil {
		if err := s.cfg.FollowUp.FollowUp(ctx, saved); err != nil {
			s.logger.Warn("lead follow-up failed", zap.String("ref", saved.Ref), zap.Error(err))
		}
	}

	return saved, nil
}

func (s *Service) notify(l *Lead) {
	if s.cfg.Queue == nil {
		return
	}

	var details []notify.Detail
	if s.cfg.Schema.Describe != nil {
		details = s.cfg.Schema.Describe(l.Answers)
	}

	reqs := []notify.Request{{
		Recipient: l.Email,
		Name:      l.Name,
		Kind:      notify.KindLeadConfirmation,
		Ref:       l.Ref,
		Details:   details,
	}}
	if s.cfg.BrokerEmail != "" {
		reqs = append(reqs, notify.Request{
			Recipient: s.cfg.BrokerEmail,
			Name:      l.Name,
			Kind:      notify.KindBrokerAlert,
			Ref:       l.Ref,
			Details:   append([]notify.Detail{{Label: "Source", Value: string(l.Source)}}, details...),
		})
	}

	for _, req := range reqs {
		if err := s.cfg.Queue.Enqueue(req); err != nil {
			s.logger.Error("queueing email", zap.String("kind", string(req.Kind)), zap.String("ref", l.Ref), zap.Error(err))
		}
	}
}

// HandleResult is a notify.Queue result hook: it stamps notified_at once the
// lead's confirmation has been delivered.
func (s *Service) HandleResult(req notify.Request, err error) {
	if err != nil || req.Kind != notify.KindLeadConfirmation || req.Ref == "" {
		return
	}
	if err := s.repo.MarkNotified(context.Background(), req.Ref); err != nil {
		s.logger.Warn("marking lead notified", zap.String("ref", req.Ref), zap.Error(err))
	}
}

// Get returns a lead by reference.
func (s *Service) Get(ctx context.Context, ref string) (*Lead, error) {
	return s.repo.GetByRef(ctx, ref)
}

// List returns leads filtered by opts.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*Lead, error) {
	return s.repo.List(ctx, opts)
}

package leads

import (
	"context"
	"math"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/apperr"
)

const (
	DefaultSource = "website"
	defaultLimit  = 20
	maxLimit      = 100
)

type Page struct {
	Leads []Lead `json:"data"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Total int    `json:"total"`
	Pages int    `json:"pages"`
}

type Service struct {
	Repo Repository
	Log  *zap.Logger
	Now  func() time.Time
}

func NewService(repo Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Repo: repo, Log: log, Now: time.Now}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Lead, error) {
	name := strings.TrimSpace(req.Name)
	if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
		return Lead{}, apperr.Validation("invalid_name", "name must be between 2 and 100 characters")
	}
	email := strings.TrimSpace(req.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return Lead{}, apperr.Validation("invalid_email", "email is not valid")
		}
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = DefaultSource
	}

	l := Lead{
		ID:        uuid.NewString(),
		Name:      name,
		Phone:     strings.TrimSpace(req.Phone),
		Email:     email,
		Company:   strings.TrimSpace(req.Company),
		Message:   strings.TrimSpace(req.Message),
		Source:    source,
		CreatedAt: s.Now().UTC(),
	}
	if err := s.Repo.CreateLead(ctx, &l); err != nil {
		s.Log.Error("create lead", zap.Error(err))
		return Lead{}, apperr.Storage("could not save the request", err)
	}
	s.Log.Info("lead created", zap.String("lead_id", l.ID), zap.String("source", l.Source))
	return l, nil
}

func (s *Service) List(ctx context.Context, page, limit int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	items, total, err := s.Repo.ListLeads(ctx, (page-1)*limit, limit)
	if err != nil {
		s.Log.Error("list leads", zap.Error(err))
		return Page{}, apperr.Storage("could not load requests", err)
	}
	if items == nil {
		items = []Lead{}
	}
	return Page{
		Leads: items,
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

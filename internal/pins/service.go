package pins

import (
	"context"
	"fmt"

	"github.com/angelmondragon/newsapi-backend/internal/entitlements"
	"github.com/angelmondragon/newsapi-backend/pkg/db"
	"github.com/angelmondragon/newsapi-backend/pkg/db/models"
	"github.com/angelmondragon/newsapi-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/newsapi-backend/pkg/errors"
	"github.com/angelmondragon/newsapi-backend/pkg/logger"
	"github.com/angelmondragon/newsapi-backend/pkg/metrics"
	"github.com/angelmondragon/newsapi-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reasons returned by CanPin when pinning is not allowed.
const (
	ReasonInvalidPost  = "invalid_post"
	ReasonPostNotFound = "post_not_found"
	ReasonNotAuthor    = "not_post_author"
)

// pinAttempts bounds how often a pin is replayed after losing the user_id
// uniqueness race to a concurrent pin.
const pinAttempts = 2

type postLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Post, error)
}

type featureGate interface {
	Check(ctx context.Context, userID uuid.UUID, feature enums.Feature) (entitlements.Decision, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the pin registry. Every user has at most one pin; pinning again
// replaces the previous one.
type Service interface {
	Pin(ctx context.Context, userID uuid.UUID, postID int64) (*models.PinnedPost, error)
	Unpin(ctx context.Context, userID uuid.UUID) error
	GetPinned(ctx context.Context, userID uuid.UUID) (*models.PinnedPost, error)
	CanPin(ctx context.Context, userID uuid.UUID, postID int64) (Eligibility, error)
	ListPinned(ctx context.Context, params pagination.Params) (Page, error)
}

// Eligibility is the precheck answer. Reason is empty when Allowed is true.
type Eligibility struct {
	Allowed bool
	Reason  string
}

// Page is one slice of the public pin listing.
type Page struct {
	Pins       []models.PinnedPost
	NextCursor string
}

// ServiceParams groups dependencies for the pin registry.
type ServiceParams struct {
	Repo              Repository
	Posts             postLookup
	Gate              featureGate
	TransactionRunner txRunner
	Metrics           *metrics.SubscriptionMetrics
	Logger            *logger.Logger
}

type service struct {
	repo     Repository
	posts    postLookup
	gate     featureGate
	txRunner txRunner
	metrics  *metrics.SubscriptionMetrics
	logg     *logger.Logger
}

// NewService builds the pin registry with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("pin repo required")
	}
	if params.Posts == nil {
		return nil, fmt.Errorf("post lookup required")
	}
	if params.Gate == nil {
		return nil, fmt.Errorf("entitlement gate required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     params.Repo,
		posts:    params.Posts,
		gate:     params.Gate,
		txRunner: params.TransactionRunner,
		metrics:  params.Metrics,
		logg:     logg,
	}, nil
}

// authorize runs the checks shared by Pin and CanPin, in order: the post
// exists, the user wrote it, the user's plan grants pinning.
func (s *service) authorize(ctx context.Context, userID uuid.UUID, postID int64) (*models.Post, error) {
	if postID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post id must be positive").
			WithReason(ReasonInvalidPost)
	}

	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load post")
	}
	if post == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found").
			WithReason(ReasonPostNotFound)
	}
	if post.AuthorID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot pin another user's post").
			WithReason(ReasonNotAuthor)
	}

	decision, err := s.gate.Check(ctx, userID, enums.FeaturePinPosts)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, pkgerrors.New(pkgerrors.CodeEntitlement, "active subscription with post pinning required").
			WithReason(decision.Reason)
	}
	return post, nil
}

func (s *service) Pin(ctx context.Context, userID uuid.UUID, postID int64) (*models.PinnedPost, error) {
	post, err := s.authorize(ctx, userID, postID)
	if err != nil {
		if isDenial(err) {
			s.metrics.IncPin("denied")
		}
		return nil, err
	}

	var (
		pin      *models.PinnedPost
		replaced bool
	)
	for attempt := 1; attempt <= pinAttempts; attempt++ {
		pin = &models.PinnedPost{UserID: userID, PostID: post.ID}
		err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			existed, err := repo.DeleteByUser(ctx, userID)
			if err != nil {
				return err
			}
			replaced = replaced || existed
			return repo.Create(ctx, pin)
		})
		if err == nil {
			break
		}
		if db.IsUniqueViolation(err, "") && attempt < pinAttempts {
			s.logg.Warn(s.logg.WithUserID(ctx, userID.String()), "concurrent pin detected, replacing")
			replaced = true
			continue
		}
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "pin was modified concurrently, try again")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save pin")
	}

	pin.Post = post
	outcome := "pinned"
	if replaced {
		outcome = "replaced"
	}
	s.metrics.IncPin(outcome)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id": userID.String(),
		"post_id": post.ID,
		"outcome": outcome,
	}), "post pinned")
	return pin, nil
}

// Unpin removes the user's pin; NotFound when there was none.
func (s *service) Unpin(ctx context.Context, userID uuid.UUID) error {
	existed, err := s.repo.DeleteByUser(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete pin")
	}
	if !existed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no pinned post")
	}
	return nil
}

// GetPinned returns the user's pin or nil. Pins outlive the subscription that
// allowed them, so no entitlement check happens here.
func (s *service) GetPinned(ctx context.Context, userID uuid.UUID) (*models.PinnedPost, error) {
	pin, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pin")
	}
	return pin, nil
}

// CanPin answers the same question as Pin without writing. Business denials
// become a false answer with a reason; storage faults are returned.
func (s *service) CanPin(ctx context.Context, userID uuid.UUID, postID int64) (Eligibility, error) {
	if _, err := s.authorize(ctx, userID, postID); err != nil {
		if isDenial(err) {
			return Eligibility{Reason: denialReason(err)}, nil
		}
		return Eligibility{}, err
	}
	return Eligibility{Allowed: true}, nil
}

func (s *service) ListPinned(ctx context.Context, params pagination.Params) (Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	pins, next, err := s.repo.List(ctx, ListQuery{Limit: params.Limit, Cursor: cursor})
	if err != nil {
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pins")
	}
	page := Page{Pins: pins}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

func isDenial(err error) bool {
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeValidation, pkgerrors.CodeNotFound, pkgerrors.CodeForbidden, pkgerrors.CodeEntitlement:
		return true
	}
	return false
}

func denialReason(err error) string {
	if reason := pkgerrors.ReasonOf(err); reason != "" {
		return reason
	}
	return string(pkgerrors.CodeOf(err))
}

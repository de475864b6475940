package service

import (
	"errors"
	"fmt"
	"time"

	"airjump/internal/database"
	"airjump/internal/events"
	"airjump/internal/metrics"
	"airjump/internal/models"
	"airjump/internal/qrtoken"
	"airjump/internal/repository"

	log "github.com/sirupsen/logrus"
)

var (
	ErrInvalidTokenFormat = errors.New("invalid token format")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenExpired       = errors.New("token expired")
	ErrAlreadyCheckedIn   = errors.New("token already used to check in")
	ErrChildAlreadyInside = errors.New("child is already inside")
	ErrNotCheckedIn       = errors.New("child has not checked in with this token")
	ErrAlreadyCheckedOut  = errors.New("visit already checked out")
	ErrNoFreeEntries      = errors.New("no free entries available")
)

const (
	defaultRecentVisits = 50
	maxRecentVisits     = 500
)

// EntryOptions holds the visit timing limits and the venue's time zone, UTC when nil
type EntryOptions struct {
	TokenTTL         time.Duration
	MaxVisitDuration time.Duration
	Location         *time.Location
}

// ScanResult is what the desk sees after scanning a token
type ScanResult struct {
	Visit       models.Visit        `json:"visit"`
	Child       models.ChildProfile `json:"child"`
	Action      models.ScanAction   `json:"action"`
	FreeEntries int                 `json:"free_entries"`
}

// CheckOutResult is a closed visit together with the parent's updated card
type CheckOutResult struct {
	ScanResult
	DurationMinutes int                   `json:"duration_minutes"`
	Loyalty         models.LoyaltyProgram `json:"loyalty"`
	EarnedFreeEntry bool                  `json:"earned_free_entry"`
}

// visitEvent is the payload published for visit transitions
type visitEvent struct {
	VisitID   int64    `json:"visit_id"`
	ChildID   int64    `json:"child_id"`
	ParentID  int64    `json:"parent_id"`
	ChildName string   `json:"child_name"`
	Tags      []string `json:"tags"`
	IsFree    bool     `json:"is_free"`
}

// EntryService issues QR tokens and flips visits between pending, active and closed
type EntryService struct {
	db          *database.DB
	childRepo   *repository.ChildRepository
	visitRepo   *repository.VisitRepository
	loyaltyRepo *repository.LoyaltyRepository
	loyalty     *LoyaltyService
	issuer      *qrtoken.Issuer
	publisher   events.Publisher
	metrics     *metrics.Metrics
	opts        EntryOptions
	now         func() time.Time
}

// NewEntryService creates a new entry service. A nil publisher drops events.
func NewEntryService(
	db *database.DB,
	childRepo *repository.ChildRepository,
	visitRepo *repository.VisitRepository,
	loyaltyRepo *repository.LoyaltyRepository,
	loyalty *LoyaltyService,
	issuer *qrtoken.Issuer,
	publisher events.Publisher,
	m *metrics.Metrics,
	opts EntryOptions,
) *EntryService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if opts.TokenTTL > opts.MaxVisitDuration {
		opts.TokenTTL = opts.MaxVisitDuration
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &EntryService{
		db:          db,
		childRepo:   childRepo,
		visitRepo:   visitRepo,
		loyaltyRepo: loyaltyRepo,
		loyalty:     loyalty,
		issuer:      issuer,
		publisher:   publisher,
		metrics:     m,
		opts:        opts,
		now:         venueClock(opts.Location),
	}
}

func (s *EntryService) publish(eventType string, data interface{}) {
	if err := s.publisher.Publish(eventType, data); err != nil {
		log.Warnf("Failed to publish %s: %v", eventType, err)
	}
}

func newVisitEvent(v *models.Visit, child *models.ChildProfile) visitEvent {
	return visitEvent{
		VisitID:   v.ID,
		ChildID:   child.ID,
		ParentID:  child.ParentID,
		ChildName: child.Name,
		Tags:      child.Tags,
		IsFree:    v.IsFree,
	}
}

// IssueToken returns the token a parent shows at the desk. While the child is
// inside it returns the open visit so the same code checks them out. Otherwise
// older unused tokens are superseded by a new pending one.
func (s *EntryService) IssueToken(parentID, childID int64) (*models.Visit, error) {
	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return nil, err
	}
	if child == nil || child.ParentID != parentID {
		return nil, ErrChildNotFound
	}

	active, err := s.visitRepo.GetActiveVisitForChild(childID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return active, nil
	}

	now := s.now()
	token, err := s.issuer.Generate(childID, now)
	if err != nil {
		return nil, err
	}
	visit := &models.Visit{
		ChildID:   childID,
		Token:     token,
		ExpiresAt: now.Add(s.opts.TokenTTL),
		CreatedAt: now,
	}

	err = s.db.WithTx(func(tx *database.Tx) error {
		visits := s.visitRepo.WithTx(tx)
		superseded, err := visits.DeletePendingVisits(childID)
		if err != nil {
			return err
		}
		if superseded > 0 {
			log.Debugf("Superseded %d pending tokens for child %d", superseded, childID)
		}
		return visits.CreateVisit(visit)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.metrics.TokensIssued.Inc()
	profile := models.NewChildProfile(*child, now)
	s.publish(events.TokenIssued, newVisitEvent(visit, &profile))
	return visit, nil
}

// ValidateToken looks a scanned token up without changing anything
func (s *EntryService) ValidateToken(raw string) (*ScanResult, error) {
	result, err := s.lookup(raw)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidTokenFormat):
			s.metrics.Scans.WithLabelValues(metrics.ScanInvalid).Inc()
		case errors.Is(err, ErrTokenNotFound):
			s.metrics.Scans.WithLabelValues(metrics.ScanNotFound).Inc()
		case errors.Is(err, ErrTokenExpired):
			s.metrics.Scans.WithLabelValues(metrics.ScanExpired).Inc()
		}
		return nil, err
	}
	s.metrics.Scans.WithLabelValues(metrics.ScanValid).Inc()
	return result, nil
}

func (s *EntryService) lookup(raw string) (*ScanResult, error) {
	token := qrtoken.Normalize(raw)
	if !qrtoken.ValidFormat(token) {
		return nil, ErrInvalidTokenFormat
	}

	visit, err := s.visitRepo.GetVisitByToken(token)
	if err != nil {
		return nil, err
	}
	if visit == nil {
		return nil, ErrTokenNotFound
	}

	now := s.now()
	if visit.IsExpired(now) {
		return nil, ErrTokenExpired
	}

	child, err := s.childRepo.GetChildByID(visit.ChildID)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, ErrTokenNotFound
	}

	freeEntries := 0
	program, err := s.loyaltyRepo.GetProgram(child.ParentID)
	if err != nil {
		return nil, err
	}
	if program != nil {
		freeEntries = program.FreeEntries
	}

	return &ScanResult{
		Visit:       *visit,
		Child:       models.NewChildProfile(*child, now),
		Action:      visit.NextAction(),
		FreeEntries: freeEntries,
	}, nil
}

func (s *EntryService) conflict(reason string, err error) error {
	s.metrics.ScanConflicts.WithLabelValues(reason).Inc()
	return err
}

// CheckIn opens the visit for a pending token. With useFreeEntry one of the
// parent's free entries is consumed in the same transaction.
func (s *EntryService) CheckIn(raw string, useFreeEntry bool) (*ScanResult, error) {
	result, err := s.ValidateToken(raw)
	if err != nil {
		return nil, err
	}
	if result.Visit.State() != models.VisitPending {
		return nil, s.conflict("already_checked_in", ErrAlreadyCheckedIn)
	}

	now := s.now()
	err = s.db.WithTx(func(tx *database.Tx) error {
		visits := s.visitRepo.WithTx(tx)

		ok, err := visits.MarkCheckedIn(result.Visit.ID, now, useFreeEntry)
		if err != nil {
			if s.db.Dialect.IsUniqueViolation(err) {
				return ErrChildAlreadyInside
			}
			return err
		}
		if !ok {
			current, err := visits.GetVisitByToken(result.Visit.Token)
			if err != nil {
				return err
			}
			if current == nil {
				return ErrTokenNotFound
			}
			if current.IsExpired(now) {
				return ErrTokenExpired
			}
			return ErrAlreadyCheckedIn
		}

		if useFreeEntry {
			redeemed, err := s.loyaltyRepo.WithTx(tx).RedeemFreeEntry(result.Child.ParentID, now)
			if err != nil {
				return err
			}
			if !redeemed {
				return ErrNoFreeEntries
			}
		}
		return nil
	})
	switch {
	case errors.Is(err, ErrChildAlreadyInside):
		return nil, s.conflict("child_inside", err)
	case errors.Is(err, ErrAlreadyCheckedIn):
		return nil, s.conflict("already_checked_in", err)
	case err != nil:
		return nil, err
	}

	result.Visit.IsActive = true
	result.Visit.IsFree = useFreeEntry
	result.Visit.EntryTime = &now
	result.Action = result.Visit.NextAction()
	if useFreeEntry {
		result.FreeEntries--
	}

	kind := "paid"
	if useFreeEntry {
		kind = "free"
	}
	s.metrics.CheckIns.WithLabelValues(kind).Inc()
	s.metrics.ChildrenInside.Inc()

	log.WithFields(log.Fields{"visit": result.Visit.ID, "child": result.Child.ID, "free": useFreeEntry}).Info("Child checked in")
	s.publish(events.CheckedIn, newVisitEvent(&result.Visit, &result.Child))
	return result, nil
}

// CheckOut closes an open visit, counts it on the child and adds one loyalty seal
func (s *EntryService) CheckOut(raw string) (*CheckOutResult, error) {
	scan, err := s.ValidateToken(raw)
	if err != nil {
		return nil, err
	}
	switch scan.Visit.State() {
	case models.VisitPending:
		return nil, s.conflict("not_checked_in", ErrNotCheckedIn)
	case models.VisitClosed:
		return nil, s.conflict("already_checked_out", ErrAlreadyCheckedOut)
	}

	// The card must exist before the transaction so AddSeal always hits a row
	if _, err := s.loyalty.GetProgram(scan.Child.ParentID); err != nil {
		return nil, err
	}

	now := s.now()
	var program *models.LoyaltyProgram
	err = s.db.WithTx(func(tx *database.Tx) error {
		ok, err := s.visitRepo.WithTx(tx).MarkCheckedOut(scan.Visit.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyCheckedOut
		}

		if err := s.childRepo.WithTx(tx).IncrementVisits(scan.Child.ID); err != nil {
			return err
		}

		cards := s.loyaltyRepo.WithTx(tx)
		sealed, err := cards.AddSeal(scan.Child.ParentID, now)
		if err != nil {
			return err
		}
		if !sealed {
			return fmt.Errorf("failed to add loyalty seal: no card for parent %d", scan.Child.ParentID)
		}
		program, err = cards.GetProgram(scan.Child.ParentID)
		return err
	})
	if errors.Is(err, ErrAlreadyCheckedOut) {
		return nil, s.conflict("already_checked_out", err)
	}
	if err != nil {
		return nil, err
	}

	scan.Visit.IsActive = false
	scan.Visit.ExitTime = &now
	scan.Action = scan.Visit.NextAction()
	scan.Child.Visits++
	scan.FreeEntries = program.FreeEntries

	duration := scan.Visit.Duration(now)
	s.metrics.ObserveVisit(duration)
	s.metrics.ChildrenInside.Dec()

	// seals wraps to zero exactly when a full card became a free entry
	earned := program.Seals == 0
	result := &CheckOutResult{
		ScanResult:      *scan,
		DurationMinutes: int(duration.Minutes()),
		Loyalty:         *program,
		EarnedFreeEntry: earned,
	}

	log.WithFields(log.Fields{"visit": scan.Visit.ID, "child": scan.Child.ID, "minutes": result.DurationMinutes}).Info("Child checked out")
	s.publish(events.CheckedOut, newVisitEvent(&scan.Visit, &scan.Child))
	if earned {
		s.metrics.FreeEntriesEarned.Inc()
		s.publish(events.FreeEntryEarned, program)
	}
	return result, nil
}

func toVisitsWithChildren(rows []repository.VisitChildRow, now time.Time) []models.VisitWithChild {
	result := make([]models.VisitWithChild, 0, len(rows))
	for _, row := range rows {
		result = append(result, models.VisitWithChild{
			Visit: row.Visit,
			Child: models.NewChildProfile(row.Child, now),
		})
	}
	return result
}

// ActiveChildren lists the children inside right now, longest stay first
func (s *EntryService) ActiveChildren() ([]models.VisitWithChild, error) {
	rows, err := s.visitRepo.GetActiveVisits()
	if err != nil {
		return nil, err
	}
	return toVisitsWithChildren(rows, s.now()), nil
}

// RecentVisits lists the latest entries, newest first
func (s *EntryService) RecentVisits(limit int) ([]models.VisitWithChild, error) {
	if limit <= 0 {
		limit = defaultRecentVisits
	}
	if limit > maxRecentVisits {
		limit = maxRecentVisits
	}
	rows, err := s.visitRepo.GetRecentVisits(limit)
	if err != nil {
		return nil, err
	}
	return toVisitsWithChildren(rows, s.now()), nil
}

// DailyStats summarizes the entries of one venue calendar day. Only the year, month
// and day of day are used; the zero time means today at the venue.
func (s *EntryService) DailyStats(day time.Time) (*models.DailyStats, error) {
	if day.IsZero() {
		day = s.now()
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.opts.Location)
	return s.visitRepo.GetDailyStats(start, start.AddDate(0, 0, 1))
}

// CloseAbandonedVisits closes visits open longer than the maximum visit duration
// and removes tokens that expired that long ago. Closed visits earn no seal.
func (s *EntryService) CloseAbandonedVisits() (closed, removed int64, err error) {
	now := s.now()
	cutoff := now.Add(-s.opts.MaxVisitDuration)

	closed, err = s.visitRepo.CloseAbandonedVisits(cutoff, now)
	if err != nil {
		return 0, 0, err
	}
	removed, err = s.visitRepo.DeleteStalePendingVisits(cutoff)
	if err != nil {
		return closed, 0, err
	}

	if closed > 0 {
		log.Warnf("Closed %d visits that were never checked out", closed)
		s.metrics.AbandonedVisits.Add(float64(closed))
		s.metrics.ChildrenInside.Sub(float64(closed))
		s.publish(events.VisitsAbandoned, map[string]int64{"closed": closed})
	}
	if removed > 0 {
		log.Debugf("Removed %d stale entry tokens", removed)
	}
	return closed, removed, nil
}

// SyncMetrics sets the inside gauge from the database, used at startup
func (s *EntryService) SyncMetrics() error {
	rows, err := s.visitRepo.GetActiveVisits()
	if err != nil {
		return err
	}
	s.metrics.ChildrenInside.Set(float64(len(rows)))
	return nil
}

package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/brightpath-edu/scheduling-api/internal/dto"
	"github.com/brightpath-edu/scheduling-api/internal/models"
	"github.com/brightpath-edu/scheduling-api/pkg/config"
	appErrors "github.com/brightpath-edu/scheduling-api/pkg/errors"
)

type templateReader interface {
	ListByTutors(ctx context.Context, tutorIDs []string) ([]models.AvailabilityTemplate, error)
}

type timeOffReader interface {
	ListApprovedInRange(ctx context.Context, tutorIDs []string, from, to time.Time) ([]models.TimeOffRequest, error)
}

type lessonReader interface {
	ListScheduledInRange(ctx context.Context, tutorIDs []string, from, to time.Time) ([]models.LessonInstance, error)
}

type gridCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// AvailabilityService resolves tutor × slot grids from weekly templates,
// approved time off, and booked lessons.
type AvailabilityService struct {
	templates templateReader
	timeOff   timeOffReader
	lessons   lessonReader
	cache     gridCache
	cfg       config.AvailabilityConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs the service. The cache may be nil.
func NewAvailabilityService(templates templateReader, timeOff timeOffReader, lessons lessonReader, cache gridCache, cfg config.AvailabilityConfig, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Second
	}
	if cfg.SlotDuration <= 0 {
		cfg.SlotDuration = time.Hour
	}
	return &AvailabilityService{
		templates: templates,
		timeOff:   timeOff,
		lessons:   lessons,
		cache:     cache,
		cfg:       cfg,
		validator: validator.New(),
		logger:    logger,
	}
}

// availabilityInputs bundles everything the grid computation needs.
type availabilityInputs struct {
	templates []models.AvailabilityTemplate
	timeOff   []models.TimeOffRequest
	lessons   []models.LessonInstance
}

// Resolve computes the availability grid for the request. Any failure to
// load an input yields a grid with every cell unavailable and Degraded set:
// a tutor must never look free because a backend read failed.
func (s *AvailabilityService) Resolve(ctx context.Context, req dto.ResolveAvailabilityRequest) (*dto.AvailabilityGrid, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	cacheKey := s.gridCacheKey(req)
	if s.cfg.CacheEnabled && s.cache != nil {
		var cached dto.AvailabilityGrid
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Sugar().Warnw("availability cache read failed", "error", err)
		}
	}

	from, to := slotDateBounds(req.Slots)

	inputs, err := s.fetchInputs(ctx, req.TutorIDs, from, to)
	if err != nil {
		s.logger.Sugar().Errorw("availability input fetch failed, failing closed", "error", err)
		return failClosedGrid(req, "availability inputs unavailable"), nil
	}

	grid := s.computeGrid(req, inputs)

	if s.cfg.CacheEnabled && s.cache != nil && !grid.Degraded {
		if err := s.cache.Set(ctx, cacheKey, grid, s.cfg.CacheTTL); err != nil {
			s.logger.Sugar().Warnw("availability cache write failed", "error", err)
		}
	}

	return grid, nil
}

// fetchInputs loads the three availability inputs concurrently under a
// shared timeout. The first error wins and cancels the rest.
func (s *AvailabilityService) fetchInputs(ctx context.Context, tutorIDs []string, from, to time.Time) (*availabilityInputs, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	inputs := &availabilityInputs{}
	var wg sync.WaitGroup
	errCh := make(chan error, 3)

	wg.Add(3)
	go func() {
		defer wg.Done()
		templates, err := s.templates.ListByTutors(fetchCtx, tutorIDs)
		if err != nil {
			errCh <- fmt.Errorf("templates: %w", err)
			cancel()
			return
		}
		inputs.templates = templates
	}()
	go func() {
		defer wg.Done()
		timeOff, err := s.timeOff.ListApprovedInRange(fetchCtx, tutorIDs, from, to)
		if err != nil {
			errCh <- fmt.Errorf("time off: %w", err)
			cancel()
			return
		}
		inputs.timeOff = timeOff
	}()
	go func() {
		defer wg.Done()
		lessons, err := s.lessons.ListScheduledInRange(fetchCtx, tutorIDs, from, to)
		if err != nil {
			errCh <- fmt.Errorf("lessons: %w", err)
			cancel()
			return
		}
		inputs.lessons = lessons
	}()
	wg.Wait()

	select {
	case err := <-errCh:
		return nil, err
	default:
		return inputs, nil
	}
}

func (s *AvailabilityService) computeGrid(req dto.ResolveAvailabilityRequest, inputs *availabilityInputs) *dto.AvailabilityGrid {
	// index templates by tutor and weekday
	windows := make(map[string]map[string][]models.AvailabilityTemplate)
	for _, tpl := range inputs.templates {
		day := strings.ToLower(tpl.DayOfWeek)
		if windows[tpl.TutorID] == nil {
			windows[tpl.TutorID] = make(map[string][]models.AvailabilityTemplate)
		}
		windows[tpl.TutorID][day] = append(windows[tpl.TutorID][day], tpl)
	}

	timeOffByTutor := make(map[string][]models.TimeOffRequest)
	for _, off := range inputs.timeOff {
		timeOffByTutor[off.TutorID] = append(timeOffByTutor[off.TutorID], off)
	}

	lessonsByTutor := make(map[string][]models.LessonInstance)
	for _, lesson := range inputs.lessons {
		lessonsByTutor[lesson.TutorID] = append(lessonsByTutor[lesson.TutorID], lesson)
	}

	grid := &dto.AvailabilityGrid{Statuses: make(map[string]map[string]models.SlotStatus, len(req.TutorIDs))}
	for _, tutorID := range req.TutorIDs {
		cells := make(map[string]models.SlotStatus, len(req.Slots))
		for _, slot := range req.Slots {
			cells[slot.Key] = s.resolveCell(req.ViewType, slot, windows[tutorID], timeOffByTutor[tutorID], lessonsByTutor[tutorID])
		}
		grid.Statuses[tutorID] = cells
	}
	return grid
}

// resolveCell applies the precedence rules for one (tutor, slot) pair:
// no template window wins, then approved time off, then lesson conflicts,
// and only then is the slot available.
func (s *AvailabilityService) resolveCell(viewType string, slot dto.SlotRequest, windows map[string][]models.AvailabilityTemplate, timeOff []models.TimeOffRequest, lessons []models.LessonInstance) models.SlotStatus {
	day := weekdayName(slot.Date)
	dayWindows := windows[day]
	if len(dayWindows) == 0 {
		return models.SlotStatusUnavailable
	}

	slotStart := slot.Date
	if viewType == dto.ViewTeacherDay {
		minutes, err := parseClock(slot.Time)
		if err != nil {
			return models.SlotStatusUnavailable
		}
		slotStart = startOfDay(slot.Date).Add(time.Duration(minutes) * time.Minute)

		inWindow := false
		for _, window := range dayWindows {
			startMin, errStart := parseClock(window.StartTime)
			endMin, errEnd := parseClock(window.EndTime)
			if errStart != nil || errEnd != nil {
				continue
			}
			if minutes >= startMin && minutes < endMin {
				inWindow = true
				break
			}
		}
		if !inWindow {
			return models.SlotStatusUnavailable
		}
	}

	dayStart := startOfDay(slot.Date)
	for _, off := range timeOff {
		if !dayStart.Before(startOfDay(off.StartDate)) && !dayStart.After(startOfDay(off.EndDate)) {
			return models.SlotStatusUnavailable
		}
	}

	if viewType == dto.ViewTeacherDay {
		slotEnd := slotStart.Add(s.cfg.SlotDuration)
		for _, lesson := range lessons {
			if rangesOverlap(slotStart, slotEnd, lesson.StartTime, lesson.EndTime) {
				return models.SlotStatusBooked
			}
		}
	} else {
		for _, lesson := range lessons {
			if sameDay(lesson.StartTime, slot.Date) {
				return models.SlotStatusBooked
			}
		}
	}

	return models.SlotStatusAvailable
}

// failClosedGrid marks every requested cell unavailable.
func failClosedGrid(req dto.ResolveAvailabilityRequest, reason string) *dto.AvailabilityGrid {
	grid := &dto.AvailabilityGrid{
		Statuses: make(map[string]map[string]models.SlotStatus, len(req.TutorIDs)),
		Degraded: true,
		Reason:   reason,
	}
	for _, tutorID := range req.TutorIDs {
		cells := make(map[string]models.SlotStatus, len(req.Slots))
		for _, slot := range req.Slots {
			cells[slot.Key] = models.SlotStatusUnavailable
		}
		grid.Statuses[tutorID] = cells
	}
	return grid
}

func slotDateBounds(slots []dto.SlotRequest) (time.Time, time.Time) {
	min, max := slots[0].Date, slots[0].Date
	for _, slot := range slots[1:] {
		if slot.Date.Before(min) {
			min = slot.Date
		}
		if slot.Date.After(max) {
			max = slot.Date
		}
	}
	return startOfDay(min), endOfDay(max)
}

// gridCacheKey derives a stable key from the request contents.
func (s *AvailabilityService) gridCacheKey(req dto.ResolveAvailabilityRequest) string {
	tutors := append([]string(nil), req.TutorIDs...)
	sort.Strings(tutors)

	payload, _ := json.Marshal(struct {
		Tutors   []string          `json:"tutors"`
		Slots    []dto.SlotRequest `json:"slots"`
		ViewType string            `json:"viewType"`
	}{tutors, req.Slots, req.ViewType})

	sum := sha256.Sum256(payload)
	return "availability:" + hex.EncodeToString(sum[:])
}

package analytics

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/gcbaptista/go-help-search/internal/repo"
	"github.com/gcbaptista/go-help-search/internal/search"
	"github.com/gcbaptista/go-help-search/model"
)

const (
	maxEventsToKeep = 10000 // Keep last 10k events for performance
	retention       = 14 * 24 * time.Hour
	topQueries      = 5
)

// Search types recorded per event
const (
	SearchTypeWord     = "word"
	SearchTypePhrase   = "phrase"
	SearchTypeWildcard = "wildcard"
)

// CatalogReader is the catalog view the dashboard reports on.
type CatalogReader interface {
	Books() []model.Book
	ScopeTitle(index int) string
}

// Service implements analytics tracking and reporting
type Service struct {
	mutex   sync.RWMutex
	events  []model.SearchEvent
	catalog CatalogReader
	db      *gorm.DB
	logger  zerolog.Logger
	now     func() time.Time
	wg      sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithRepository persists events to the query log database.
func WithRepository(db *gorm.DB) Option {
	return func(s *Service) { s.db = db }
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger.With().Str("component", "analytics").Logger() }
}

// NewService creates a new analytics service. With a repository, recent
// events are loaded from it.
func NewService(catalog CatalogReader, opts ...Option) *Service {
	s := &Service{
		events:  make([]model.SearchEvent, 0),
		catalog: catalog,
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.loadData(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to load analytics data")
	}
	return s
}

// Observer returns a panel observer that tracks the session's query runs.
func (s *Service) Observer(sessionID string) search.Observer {
	return func(ev search.QueryEvent) {
		searchType := SearchTypeWord
		switch {
		case ev.Wildcard:
			searchType = SearchTypeWildcard
		case ev.Phrase:
			searchType = SearchTypePhrase
		}
		s.TrackSearchEvent(model.SearchEvent{
			SessionID:    sessionID,
			Query:        ev.Query,
			ScopeIndex:   ev.ScopeIndex,
			SearchType:   searchType,
			Outcome:      ev.Outcome.String(),
			ResponseTime: ev.Duration,
			ResultCount:  ev.ResultCount,
		})
	}
}

// TrackSearchEvent records a new search event
func (s *Service) TrackSearchEvent(event model.SearchEvent) {
	s.mutex.Lock()
	event.Timestamp = s.now()
	s.events = append(s.events, event)

	// Keep only the latest events to prevent unbounded growth
	if len(s.events) > maxEventsToKeep {
		s.events = s.events[len(s.events)-maxEventsToKeep:]
	}
	s.mutex.Unlock()

	if s.db == nil {
		return
	}

	// Persist asynchronously
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.InsertQueryLog(ctx, s.db, event); err != nil {
			s.logger.Warn().Err(err).Msg("failed to save analytics event")
		}
	}()
}

// Flush waits for pending writes to the query log.
func (s *Service) Flush() {
	s.wg.Wait()
}

// Prune drops persisted events older than the retention window.
func (s *Service) Prune(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, nil
	}
	return repo.DeleteQueryLogsBefore(ctx, s.db, s.now().Add(-retention))
}

// GetDashboardData returns complete analytics dashboard data
func (s *Service) GetDashboardData() model.AnalyticsDashboard {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	now := s.now()
	yesterday := now.Add(-24 * time.Hour)
	lastWeek := now.Add(-7 * 24 * time.Hour)

	// Filter events for different time periods
	last24hEvents := filterEventsByTimeRange(s.events, yesterday, now)
	prev24hEvents := filterEventsByTimeRange(s.events, yesterday.Add(-24*time.Hour), yesterday)
	lastWeekEvents := filterEventsByTimeRange(s.events, lastWeek, now)
	prevWeekEvents := filterEventsByTimeRange(s.events, lastWeek.Add(-7*24*time.Hour), lastWeek)

	books := s.catalog.Books()
	totalFiles := 0
	for _, b := range books {
		totalFiles += b.FileCount()
	}

	return model.AnalyticsDashboard{
		TotalSearches:            len(last24hEvents),
		SearchesChangePercent:    calculateChangePercent(len(last24hEvents), len(prev24hEvents)),
		AvgResponseTime:          calculateAvgResponseTime(last24hEvents),
		ResponseTimeChange:       calculateResponseTimeChange(last24hEvents, prev24hEvents),
		ZeroResultSearches:       countEvents(last24hEvents, isZeroResult),
		FailedSearches:           countEvents(last24hEvents, isFailed),
		TotalBooks:               len(books),
		TotalFiles:               totalFiles,
		SearchPerformance24h:     getHourlyPerformance(last24hEvents),
		PopularSearches:          getPopularSearches(lastWeekEvents, prevWeekEvents, nil),
		ZeroResultQueries:        getPopularSearches(lastWeekEvents, prevWeekEvents, isZeroResult),
		ScopeUsage:               s.getScopeUsage(lastWeekEvents),
		ResponseTimeDistribution: getResponseTimeDistribution(last24hEvents),
		SearchTypes:              getSearchTypeStats(last24hEvents),
	}
}

func isZeroResult(e model.SearchEvent) bool {
	return e.ResultCount == 0 && !isFailed(e)
}

func isFailed(e model.SearchEvent) bool {
	return e.Outcome == search.OutcomeLoadFailed.String()
}

func countEvents(events []model.SearchEvent, keep func(model.SearchEvent) bool) int {
	n := 0
	for _, e := range events {
		if keep(e) {
			n++
		}
	}
	return n
}

// filterEventsByTimeRange returns events in (start, end]
func filterEventsByTimeRange(events []model.SearchEvent, start, end time.Time) []model.SearchEvent {
	var filtered []model.SearchEvent
	for _, event := range events {
		if event.Timestamp.After(start) && !event.Timestamp.After(end) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// calculateChangePercent calculates percentage change
func calculateChangePercent(current, previous int) float64 {
	if previous == 0 {
		if current > 0 {
			return 100.0
		}
		return 0.0
	}
	return float64(current-previous) / float64(previous) * 100
}

// calculateAvgResponseTime calculates average response time in milliseconds
func calculateAvgResponseTime(events []model.SearchEvent) int64 {
	if len(events) == 0 {
		return 0
	}

	var total time.Duration
	for _, event := range events {
		total += event.ResponseTime
	}
	return (total / time.Duration(len(events))).Milliseconds()
}

// calculateResponseTimeChange compares average response times
func calculateResponseTimeChange(current, previous []model.SearchEvent) string {
	currentAvg := calculateAvgResponseTime(current)
	previousAvg := calculateAvgResponseTime(previous)

	switch {
	case len(previous) == 0 || currentAvg == previousAvg:
		return "stable"
	case currentAvg < previousAvg:
		return "faster"
	default:
		return "slower"
	}
}

// getHourlyPerformance returns hourly search performance for the last 24 hours
func getHourlyPerformance(events []model.SearchEvent) []model.SearchPerformanceHourly {
	hourlyData := make(map[int][]model.SearchEvent)
	for _, event := range events {
		hour := event.Timestamp.Hour()
		hourlyData[hour] = append(hourlyData[hour], event)
	}

	performance := make([]model.SearchPerformanceHourly, 0, 24)
	for hour := 0; hour < 24; hour++ {
		hourEvents := hourlyData[hour]
		performance = append(performance, model.SearchPerformanceHourly{
			Hour:            hour,
			SearchCount:     len(hourEvents),
			AvgResponseTime: calculateAvgResponseTime(hourEvents),
		})
	}
	return performance
}

// getPopularSearches returns the most frequent queries among events that
// pass keep, with their trend against the previous period
func getPopularSearches(events, previous []model.SearchEvent, keep func(model.SearchEvent) bool) []model.PopularSearch {
	count := func(evs []model.SearchEvent) map[string]int {
		counts := make(map[string]int)
		for _, e := range evs {
			if e.Query == "" || (keep != nil && !keep(e)) {
				continue
			}
			counts[e.Query]++
		}
		return counts
	}
	current := count(events)
	before := count(previous)

	queries := make([]model.PopularSearch, 0, len(current))
	for q, n := range current {
		trend := "stable"
		switch {
		case n > before[q]:
			trend = "up"
		case n < before[q]:
			trend = "down"
		}
		queries = append(queries, model.PopularSearch{Query: q, SearchCount: n, TrendChange: trend})
	}

	// Sort by count descending, then query for a stable listing
	sort.Slice(queries, func(i, j int) bool {
		if queries[i].SearchCount != queries[j].SearchCount {
			return queries[i].SearchCount > queries[j].SearchCount
		}
		return queries[i].Query < queries[j].Query
	})

	if len(queries) > topQueries {
		queries = queries[:topQueries]
	}
	return queries
}

// getScopeUsage returns how often each scope entry was searched
func (s *Service) getScopeUsage(events []model.SearchEvent) []model.ScopeUsage {
	counts := make(map[int]int)
	for _, event := range events {
		counts[event.ScopeIndex]++
	}

	usage := make([]model.ScopeUsage, 0, len(counts))
	for idx, n := range counts {
		usage = append(usage, model.ScopeUsage{
			ScopeIndex:  idx,
			Title:       s.catalog.ScopeTitle(idx),
			SearchCount: n,
		})
	}
	sort.Slice(usage, func(i, j int) bool { return usage[i].ScopeIndex < usage[j].ScopeIndex })
	return usage
}

// getResponseTimeDistribution returns response time distribution
func getResponseTimeDistribution(events []model.SearchEvent) model.ResponseTimeDistribution {
	dist := model.ResponseTimeDistribution{}
	total := len(events)
	if total == 0 {
		return dist
	}

	for _, event := range events {
		ms := event.ResponseTime.Milliseconds()
		switch {
		case ms <= 25:
			dist.Bucket0To25ms++
		case ms <= 50:
			dist.Bucket25To50ms++
		case ms <= 100:
			dist.Bucket50To100ms++
		default:
			dist.Bucket100msPlus++
		}
	}

	dist.Percentage0To25 = float64(dist.Bucket0To25ms) / float64(total) * 100
	dist.Percentage25To50 = float64(dist.Bucket25To50ms) / float64(total) * 100
	dist.Percentage50To100 = float64(dist.Bucket50To100ms) / float64(total) * 100
	dist.Percentage100Plus = float64(dist.Bucket100msPlus) / float64(total) * 100
	return dist
}

// getSearchTypeStats returns statistics for different search types
func getSearchTypeStats(events []model.SearchEvent) model.SearchTypeStats {
	stats := model.SearchTypeStats{}
	for _, event := range events {
		switch event.SearchType {
		case SearchTypeWord:
			stats.Word++
		case SearchTypePhrase:
			stats.Phrase++
		case SearchTypeWildcard:
			stats.Wildcard++
		}
	}
	return stats
}

// loadData loads recent events from the query log
func (s *Service) loadData() error {
	if s.db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	events, err := repo.ListQueryLogsSince(ctx, s.db, s.now().Add(-retention), maxEventsToKeep)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	s.events = events
	s.mutex.Unlock()
	s.logger.Info().Int("events", len(events)).Msg("loaded analytics events")
	return nil
}

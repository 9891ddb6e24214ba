// Package subscribers consumes worker result messages from NATS. The workers
// run crawls, price updates and benchmark matching out of process and report
// back here so the service can clear processing flags and refresh counters.
package subscribers

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/pushkindt/pushkind-dantes/internal/events"
	"github.com/pushkindt/pushkind-dantes/internal/repository"
)

// Result subjects published by the workers.
const (
	SubjectCrawlResult       = events.SubjectCrawl + ".result"
	SubjectPriceUpdateResult = events.SubjectPriceUpdate + ".result"
	SubjectMatchResult       = events.SubjectMatch + ".result"
)

// CrawlResult reports a finished crawl or price-update job.
type CrawlResult struct {
	CrawlerID uuid.UUID `json:"crawlerId"`
	HubID     string    `json:"hubId"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// MatchResult reports a finished benchmark matching job.
type MatchResult struct {
	HubID        string      `json:"hubId"`
	BenchmarkIDs []uuid.UUID `json:"benchmarkIds,omitempty"`
	Success      bool        `json:"success"`
	Error        string      `json:"error,omitempty"`
}

// ResultsSubscriber listens for worker results and settles the corresponding
// records.
type ResultsSubscriber struct {
	conn           *nats.Conn
	crawlersRepo   *repository.CrawlersRepository
	benchmarksRepo *repository.BenchmarksRepository
	logger         *logrus.Entry
	subs           []*nats.Subscription
}

// NewResultsSubscriber connects to NATS and returns a subscriber ready to
// Start.
func NewResultsSubscriber(crawlersRepo *repository.CrawlersRepository, benchmarksRepo *repository.BenchmarksRepository, logger *logrus.Logger) (*ResultsSubscriber, error) {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = nats.DefaultURL
	}

	conn, err := nats.Connect(natsURL,
		nats.Name("dantes-catalog-service-results"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}

	return &ResultsSubscriber{
		conn:           conn,
		crawlersRepo:   crawlersRepo,
		benchmarksRepo: benchmarksRepo,
		logger:         logger.WithField("component", "results-subscriber"),
	}, nil
}

// Start subscribes to all worker result subjects.
func (s *ResultsSubscriber) Start() error {
	crawlSub, err := s.conn.Subscribe(SubjectCrawlResult, s.handleCrawlResult)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, crawlSub)

	priceSub, err := s.conn.Subscribe(SubjectPriceUpdateResult, s.handleCrawlResult)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, priceSub)

	matchSub, err := s.conn.Subscribe(SubjectMatchResult, s.handleMatchResult)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, matchSub)

	s.logger.Info("Listening for worker results")
	return nil
}

// Stop unsubscribes and drains the connection.
func (s *ResultsSubscriber) Stop() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	if s.conn != nil {
		_ = s.conn.Drain()
	}
}

// handleCrawlResult settles a crawler after a crawl or price-update job.
// The product count is refreshed even on failure, since a partial crawl may
// still have written rows.
func (s *ResultsSubscriber) handleCrawlResult(msg *nats.Msg) {
	var result CrawlResult
	if err := json.Unmarshal(msg.Data, &result); err != nil {
		s.logger.WithError(err).WithField("subject", msg.Subject).Error("Failed to decode crawl result")
		return
	}

	logger := s.logger.WithFields(logrus.Fields{
		"subject":   msg.Subject,
		"crawlerId": result.CrawlerID,
		"hubId":     result.HubID,
		"success":   result.Success,
	})
	if !result.Success {
		logger.WithField("workerError", result.Error).Warn("Worker reported a failed job")
	}

	if err := s.crawlersRepo.RefreshProductCount(result.CrawlerID); err != nil {
		logger.WithError(err).Error("Failed to refresh product count")
	}
	if err := s.crawlersRepo.SetProcessing(result.CrawlerID, false); err != nil {
		logger.WithError(err).Error("Failed to clear processing flag")
		return
	}
	logger.Info("Crawler job settled")
}

func (s *ResultsSubscriber) handleMatchResult(msg *nats.Msg) {
	var result MatchResult
	if err := json.Unmarshal(msg.Data, &result); err != nil {
		s.logger.WithError(err).Error("Failed to decode match result")
		return
	}

	logger := s.logger.WithFields(logrus.Fields{
		"hubId":   result.HubID,
		"success": result.Success,
	})
	if !result.Success {
		logger.WithField("workerError", result.Error).Warn("Worker reported a failed match job")
	}

	if err := s.benchmarksRepo.SetProcessing(result.HubID, result.BenchmarkIDs, false); err != nil {
		logger.WithError(err).Error("Failed to clear benchmark processing flags")
		return
	}
	logger.Info("Match job settled")
}
